package trip

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDayItem_LenientDecoding(t *testing.T) {
	raw := `{
		"day": "2",
		"route": "大阪-京都",
		"ticketName": "清水寺、金阁寺",
		"ticketIds": [101, "s2"],
		"activityName": ["和服体验"],
		"transport": null,
		"hotelCost": null,
		"ticketCost": 0
	}`

	var item DayItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if item.Day != 2 {
		t.Errorf("day = %d, want 2 from string", item.Day)
	}
	if !reflect.DeepEqual(item.TicketNames, StringList{"清水寺、金阁寺"}) {
		t.Errorf("ticketName = %v, want single undivided entry", item.TicketNames)
	}
	if !reflect.DeepEqual(item.TicketIDs, IDList{"101", "s2"}) {
		t.Errorf("ticketIds = %v, want numbers stringified", item.TicketIDs)
	}
	if item.Transport != nil {
		t.Errorf("transport = %v, want nil from null", item.Transport)
	}
	if item.HotelCost != nil {
		t.Errorf("hotelCost = %v, want nil", item.HotelCost)
	}
	if item.TicketCost == nil || *item.TicketCost != 0 {
		t.Errorf("ticketCost = %v, want explicit 0", item.TicketCost)
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`3`, 3},
		{`"4"`, 4},
		{`2.0`, 2},
		{`null`, 0},
		{`"abc"`, 0},
	}
	for _, tt := range tests {
		var f FlexInt
		if err := json.Unmarshal([]byte(tt.raw), &f); err != nil {
			t.Errorf("unmarshal %s: %v", tt.raw, err)
			continue
		}
		if int(f) != tt.want {
			t.Errorf("FlexInt(%s) = %d, want %d", tt.raw, f, tt.want)
		}
	}
}

func TestStringList_MixedArray(t *testing.T) {
	var l StringList
	if err := json.Unmarshal([]byte(`["故宫", 123, ""]`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(l, StringList{"故宫", "123"}) {
		t.Errorf("list = %v", l)
	}
}

func TestIDList_BareScalar(t *testing.T) {
	var l IDList
	if err := json.Unmarshal([]byte(`42`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(l, IDList{"42"}) {
		t.Errorf("list = %v", l)
	}
}

func TestResult_ItinerarySerializesAsArray(t *testing.T) {
	b, err := json.Marshal(Result{Itinerary: []DayItem{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(m["itinerary"]) != "[]" {
		t.Errorf("itinerary = %s, want []", m["itinerary"])
	}
}
