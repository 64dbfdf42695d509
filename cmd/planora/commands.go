package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planora/planora/internal/catalog"
	"github.com/planora/planora/internal/config"
	"github.com/planora/planora/internal/ingest"
	"github.com/planora/planora/internal/trip"
)

// --- plan ---

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate an itinerary from the command line",
	Long: `Generate an itinerary without starting the server.

Examples:
  planora plan --prompt "帮我规划大阪行程" --destination 大阪 --days 5 --people 2
  planora plan --prompt "去日本玩7天" --username alice --conversation trip-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		destinations, _ := cmd.Flags().GetStringSlice("destination")
		days, _ := cmd.Flags().GetInt("days")
		people, _ := cmd.Flags().GetInt("people")
		rooms, _ := cmd.Flags().GetInt("rooms")
		startDate, _ := cmd.Flags().GetString("start-date")
		conversation, _ := cmd.Flags().GetString("conversation")
		username, _ := cmd.Flags().GetString("username")

		if prompt == "" && len(destinations) == 0 {
			return fmt.Errorf("--prompt or --destination is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		store, err := catalog.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer store.Close()

		var ident *catalog.Identity
		if username != "" {
			ident = &catalog.Identity{Username: username}
		}

		pl := buildPlanner(cfg, store)
		result := pl.GenerateItinerary(cmd.Context(), ident, trip.Request{
			Destinations:   destinations,
			Days:           days,
			StartDate:      startDate,
			PeopleCount:    people,
			RoomCount:      rooms,
			UserPrompt:     prompt,
			ConversationID: conversation,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a partner document into the catalog",
	Long: `Ingest a partner document (contract, price list, menu, quote, policy)
into the catalog. PDF files are parsed; other files are read as plain text.

Examples:
  planora ingest --file ./osaka-rates.pdf --category hotel_contract --country 日本
  planora ingest --file ./policy.md --category travel_policy --owner alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		category, _ := cmd.Flags().GetString("category")
		country, _ := cmd.Flags().GetString("country")
		cityID, _ := cmd.Flags().GetString("city-id")
		title, _ := cmd.Flags().GetString("title")
		owner, _ := cmd.Flags().GetString("owner")
		public, _ := cmd.Flags().GetBool("public")

		if file == "" {
			return fmt.Errorf("--file is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		doc, err := ingest.Build(ingest.Params{
			Path:     file,
			Category: category,
			Country:  country,
			CityID:   cityID,
			Title:    title,
			OwnerID:  owner,
			IsPublic: public,
		})
		if err != nil {
			return err
		}

		store, err := catalog.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer store.Close()

		if err := store.InsertDocument(cmd.Context(), doc); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}

		printSuccess("Ingested %s as %s (%s)", file, doc.ID, doc.Category)
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a small demo catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := catalog.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer store.Close()

		if err := seedCatalog(cmd.Context(), store); err != nil {
			return err
		}
		printSuccess("Demo catalog loaded")
		return nil
	},
}

func seedCatalog(ctx context.Context, store *catalog.Store) error {
	price := func(v float64) *float64 { return &v }

	osaka := catalog.City{ID: uuid.New().String(), Name: "大阪", Country: "日本"}
	kyoto := catalog.City{ID: uuid.New().String(), Name: "京都", Country: "日本"}
	beijing := catalog.City{ID: uuid.New().String(), Name: "北京", Country: "中国"}
	for _, c := range []catalog.City{osaka, kyoto, beijing} {
		if err := store.InsertCity(ctx, c); err != nil {
			return fmt.Errorf("seeding city %s: %w", c.Name, err)
		}
	}

	hotels := []catalog.Hotel{
		{ID: uuid.New().String(), CityID: osaka.ID, Name: "环球影城园前酒店", RoomType: "双床房", Price: price(850), IsPublic: true},
		{ID: uuid.New().String(), CityID: osaka.ID, Name: "难波东方酒店", RoomType: "大床房", Price: price(520), IsPublic: true},
		{ID: uuid.New().String(), CityID: kyoto.ID, Name: "京都站前皇家酒店", RoomType: "双床房", Price: price(680), IsPublic: true},
		{ID: uuid.New().String(), CityID: beijing.ID, Name: "王府井金茂酒店", RoomType: "大床房", Price: price(760), IsPublic: true},
	}
	for _, h := range hotels {
		if err := store.InsertHotel(ctx, h); err != nil {
			return fmt.Errorf("seeding hotel %s: %w", h.Name, err)
		}
	}

	spots := []catalog.Spot{
		{ID: uuid.New().String(), CityID: osaka.ID, Name: "环球影城", Price: price(420), IsPublic: true},
		{ID: uuid.New().String(), CityID: osaka.ID, Name: "大阪城天守阁", Price: price(35), IsPublic: true},
		{ID: uuid.New().String(), CityID: kyoto.ID, Name: "清水寺", Price: price(25), IsPublic: true},
		{ID: uuid.New().String(), CityID: kyoto.ID, Name: "伏见稻荷大社", Price: price(0), IsPublic: true},
		{ID: uuid.New().String(), CityID: beijing.ID, Name: "故宫博物院", Price: price(60), IsPublic: true},
	}
	for _, s := range spots {
		if err := store.InsertSpot(ctx, s); err != nil {
			return fmt.Errorf("seeding spot %s: %w", s.Name, err)
		}
	}

	activities := []catalog.Activity{
		{ID: uuid.New().String(), CityID: osaka.ID, Name: "道顿堀美食夜游", Price: price(180), IsPublic: true},
		{ID: uuid.New().String(), CityID: kyoto.ID, Name: "和服体验", Price: price(260), IsPublic: true},
		{ID: uuid.New().String(), CityID: kyoto.ID, Name: "岚山温泉", Price: price(320), IsPublic: true},
	}
	for _, a := range activities {
		if err := store.InsertActivity(ctx, a); err != nil {
			return fmt.Errorf("seeding activity %s: %w", a.Name, err)
		}
	}

	transports := []catalog.Transport{
		{ID: uuid.New().String(), Region: "日本", CarModel: "丰田海狮", ServiceType: "包车一日", Passengers: 9, PriceLow: price(1500), PriceHigh: price(2200), IsPublic: true},
		{ID: uuid.New().String(), Region: "日本关西", CarModel: "丰田埃尔法", ServiceType: "机场接送", Passengers: 6, PriceLow: price(600), PriceHigh: price(900), IsPublic: true},
	}
	for _, tr := range transports {
		if err := store.InsertTransport(ctx, tr); err != nil {
			return fmt.Errorf("seeding transport %s: %w", tr.ServiceType, err)
		}
	}

	restaurants := []catalog.Restaurant{
		{ID: uuid.New().String(), CityID: osaka.ID, Name: "蟹道乐 道顿堀本店", CuisineType: "日料", AvgPrice: price(380), MealType: "晚餐", IsPublic: true},
		{ID: uuid.New().String(), CityID: kyoto.ID, Name: "菊乃井", CuisineType: "怀石料理", AvgPrice: price(800), MealType: "晚餐", IsPublic: true},
	}
	for _, r := range restaurants {
		if err := store.InsertRestaurant(ctx, r); err != nil {
			return fmt.Errorf("seeding restaurant %s: %w", r.Name, err)
		}
	}

	doc := catalog.Document{
		ID:          uuid.New().String(),
		Category:    "hotel_contract",
		Country:     "日本",
		CityID:      osaka.ID,
		Title:       "大阪酒店协议价 2026",
		ContentText: "环球影城园前酒店 协议价 780元/晚（双床房，含早餐）。难波东方酒店 协议价 480元/晚。",
		IsPublic:    true,
	}
	if err := store.InsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("seeding document: %w", err)
	}

	return nil
}

func init() {
	planCmd.Flags().String("prompt", "", "planning request in natural language")
	planCmd.Flags().StringSlice("destination", nil, "destination city or country (repeatable)")
	planCmd.Flags().Int("days", 0, "trip length in days (0 = recommend)")
	planCmd.Flags().Int("people", 1, "number of travellers")
	planCmd.Flags().Int("rooms", 1, "number of hotel rooms")
	planCmd.Flags().String("start-date", "", "departure date (YYYY-MM-DD)")
	planCmd.Flags().String("conversation", "", "conversation id for memory continuity")
	planCmd.Flags().String("username", "", "act as this user (unlocks private catalog entries)")

	ingestCmd.Flags().String("file", "", "path to the document file")
	ingestCmd.Flags().String("category", "other", "document category")
	ingestCmd.Flags().String("country", "", "country the document applies to")
	ingestCmd.Flags().String("city-id", "", "city the document applies to")
	ingestCmd.Flags().String("title", "", "document title (default: file name)")
	ingestCmd.Flags().String("owner", "", "owning username (empty = unowned)")
	ingestCmd.Flags().Bool("public", false, "visible to anonymous callers")
}
