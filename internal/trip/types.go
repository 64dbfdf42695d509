// Package trip defines the request and itinerary data model shared by the
// planning pipeline and its callers.
package trip

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Message is one turn of chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the externally supplied planning request. It is immutable for
// the duration of a pipeline run.
type Request struct {
	Destinations       []string  `json:"currentDestinations"`
	Days               int       `json:"currentDays"`
	StartDate          string    `json:"startDate,omitempty"`
	PeopleCount        int       `json:"peopleCount"`
	RoomCount          int       `json:"roomCount"`
	UserPrompt         string    `json:"userPrompt"`
	ChatHistory        []Message `json:"chatHistory,omitempty"`
	CurrentRows        []DayItem `json:"currentRows,omitempty"`
	ConversationID     string    `json:"conversationId,omitempty"`
	AvailableCountries []string  `json:"availableCountries,omitempty"`
}

// Result is the pipeline's terminal envelope.
type Result struct {
	Itinerary   []DayItem `json:"itinerary"`
	Error       string    `json:"error"`
	FollowUp    string    `json:"followUp,omitempty"`
	RiskWarning string    `json:"riskWarning,omitempty"`
}

// DayItem is one day's worth of itinerary detail. Cost fields use pointers:
// nil means "unpriced", to be backfilled from the catalog where possible.
type DayItem struct {
	Day           FlexInt    `json:"day"`
	Route         string     `json:"route,omitempty"`
	StartCity     string     `json:"s_city,omitempty"`
	EndCity       string     `json:"e_city,omitempty"`
	Description   string     `json:"description,omitempty"`
	TicketNames   StringList `json:"ticketName"`
	TicketIDs     IDList     `json:"ticketIds,omitempty"`
	ActivityNames StringList `json:"activityName"`
	ActivityIDs   IDList     `json:"activityIds,omitempty"`
	Transport     StringList `json:"transport"`
	TransportIDs  IDList     `json:"transportIds,omitempty"`
	RestaurantIDs IDList     `json:"restaurantIds,omitempty"`
	HotelID       string     `json:"hotelId,omitempty"`
	HotelName     string     `json:"hotelName,omitempty"`
	HotelCost     *float64   `json:"hotelCost"`
	TicketCost    *float64   `json:"ticketCost"`
	ActivityCost  *float64   `json:"activityCost"`
	TransportCost *float64   `json:"transportCost"`
	OtherCost     *float64   `json:"otherCost"`
}

// FlexInt decodes from a JSON number (including floats) or a numeric string.
// Models are inconsistent about how they emit day numbers.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(v))
		return nil
	}
	*f = 0
	return nil
}

// StringList decodes from a JSON array of strings or from a single delimited
// string. Delimited strings are kept whole here; splitting is a normalization
// concern.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var arr []any
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if s := anyToString(v); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = StringList{s}
	return nil
}

// IDList decodes from a JSON array whose elements may be strings or numbers,
// or from a bare scalar.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var arr []any
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if s := anyToString(v); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if s := anyToString(v); s != "" {
		*l = IDList{s}
	}
	return nil
}

func anyToString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}
