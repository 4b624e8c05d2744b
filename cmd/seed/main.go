// Command seed books a batch of demo appointments so a fresh database
// has realistic scheduling data to poke at.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"petwiz/internal/config"
	"petwiz/internal/notify"
	"petwiz/internal/service/scheduling"
	"petwiz/internal/store"
	"petwiz/internal/store/postgres"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 5})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer func() { _ = postgres.Close(db) }()

	gofakeit.Seed(time.Now().UnixNano())

	repo := postgres.NewAppointmentRepo(db)
	engine := scheduling.NewEngine(repo, scheduling.NewConflictChecker(cfg.SlotWidth), notify.NewLogNotifier(nil), nil)
	svc := scheduling.NewService(engine, repo)

	vets := make([]string, 8)
	for i := range vets {
		vets[i] = "vet-" + uuid.NewString()
	}
	owners := make([]string, 40)
	for i := range owners {
		owners[i] = "owner-" + uuid.NewString()
	}

	visitTypes := []string{"checkup", "vaccination", "dental", "surgery consult", "grooming"}
	reasons := []string{
		"annual wellness exam",
		"limping on front leg",
		"not eating since yesterday",
		"booster shots due",
		"teeth cleaning",
		"skin irritation",
	}

	ctx := context.Background()
	booked, confirmed, conflicts := 0, 0, 0

	for i := 0; i < 200; i++ {
		vet := vets[gofakeit.Number(0, len(vets)-1)]
		owner := owners[gofakeit.Number(0, len(owners)-1)]
		pet := "pet-" + uuid.NewString()

		// A 30-minute grid over the next 14 business days.
		day := gofakeit.Number(1, 14)
		halfHour := gofakeit.Number(16, 33) // 08:00 .. 16:30
		at := time.Now().UTC().Truncate(24 * time.Hour).
			AddDate(0, 0, day).
			Add(time.Duration(halfHour) * 30 * time.Minute)

		appt, err := svc.Book(ctx, scheduling.BookInput{
			OwnerID:        owner,
			PetID:          pet,
			VeterinarianID: vet,
			ScheduledAt:    at,
			Type:           visitTypes[gofakeit.Number(0, len(visitTypes)-1)],
			Reason:         reasons[gofakeit.Number(0, len(reasons)-1)],
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				conflicts++
				continue
			}
			log.Fatalf("book: %v", err)
		}
		booked++

		if gofakeit.Bool() {
			if _, err := svc.Confirm(ctx, appt.ID, vet, gofakeit.Sentence(6)); err != nil {
				log.Fatalf("confirm: %v", err)
			}
			confirmed++
		}
	}

	log.Printf("seed complete: booked=%d confirmed=%d conflicts_skipped=%d", booked, confirmed, conflicts)
}
