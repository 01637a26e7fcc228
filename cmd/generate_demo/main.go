// Command generate_demo creates a demo library database: public domain books,
// copies, users and a spread of open, returned and overdue loans.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/entrypoint"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/notifier"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	demoPassword            = "demo-password"
)

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	cfg := config.NewConfig()
	cfg.Database = config.Database{Driver: config.DriverSQLite, Path: *dbPath, LogLevel: "silent"}
	cfg.Auth.BcryptCost = 10

	svc, err := entrypoint.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer svc.Close()

	categories := createCategories(svc)
	staff, clients := createUsers(svc, cfg.Auth)

	var copies []*entities.Copy
	for i, bc := range getPublicDomainBooks() {
		in := bc.Book
		for _, name := range bc.CategoryNames {
			if cat, ok := categories[name]; ok {
				in.CategoryIDs = append(in.CategoryIDs, cat.ID)
			}
		}
		book, err := svc.Catalog.CreateBook(in)
		if err != nil {
			log.Printf("Failed to save book %s: %v", in.Title, err)
			continue
		}

		for n := 1; n <= bc.Copies; n++ {
			c, err := svc.Copies.Create(book.ID, fmt.Sprintf("PD-%03d-%d", i+1, n))
			if err != nil {
				log.Printf("Failed to add copy of %s: %v", book.Title, err)
				continue
			}
			copies = append(copies, c)
		}
		log.Printf("Saved: %s by %s (%d copies)", book.Title, book.Author, bc.Copies)
	}

	createLoans(svc, staff, clients, copies)

	result, err := svc.DueSoon.RunOnce(context.Background(), notifier.TriggerCLI)
	if err != nil {
		log.Printf("Due-soon scan failed: %v", err)
	} else {
		log.Printf("Due-soon scan created %d reminders", result.Created)
	}

	log.Println("Demo database generated successfully!")
	log.Printf("Log in as admin@demo.library or librarian@demo.library with password %q", demoPassword)
}

func createCategories(svc *entrypoint.Services) map[string]entities.Category {
	names := []string{
		"Philosophy",
		"Fiction",
		"Classic",
		"Science",
		"Adventure",
	}

	categories := make(map[string]entities.Category)
	for _, name := range names {
		cat, err := svc.Catalog.CreateCategory(name)
		if err != nil {
			log.Printf("Failed to create category %s: %v", name, err)
			continue
		}
		categories[name] = *cat
	}
	return categories
}

func createUsers(svc *entrypoint.Services, authCfg config.Auth) (staff lending.Actor, clients []*entities.User) {
	authService := auth.NewService(svc.Users, authCfg)

	people := []auth.NewUser{
		{FirstName: "Ada", LastName: "Admin", Email: "admin@demo.library", Role: entities.UserRoleAdministrator},
		{FirstName: "Lena", LastName: "Librarian", Email: "librarian@demo.library", Role: entities.UserRoleLibrarian},
		{FirstName: "Clara", LastName: "Reader", Email: "clara@demo.library", Role: entities.UserRoleClient},
		{FirstName: "Tomas", LastName: "Reader", Email: "tomas@demo.library", Role: entities.UserRoleClient},
		{FirstName: "Mina", LastName: "Reader", Email: "mina@demo.library", Role: entities.UserRoleClient},
	}

	for _, p := range people {
		p.Password = demoPassword
		user, err := authService.CreateUser(p)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", p.Email, err)
		}
		switch user.Role {
		case entities.UserRoleLibrarian:
			staff = lending.Actor{UserID: user.ID, Role: user.Role}
		case entities.UserRoleClient:
			clients = append(clients, user)
		}
	}
	return staff, clients
}

// createLoans lends copies in rotation: some due tomorrow, some overdue and
// some already returned.
func createLoans(svc *entrypoint.Services, staff lending.Actor, clients []*entities.User, copies []*entities.Copy) {
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	plans := []struct {
		due      time.Time
		returned bool
	}{
		{due: today.AddDate(0, 0, 1)},
		{due: today.AddDate(0, 0, 14)},
		{due: today.AddDate(0, 0, -3)},
		{due: today.AddDate(0, 0, -10), returned: true},
		{due: today.AddDate(0, 0, 2)},
	}

	for i, c := range copies {
		if i >= len(plans)*2 || len(clients) == 0 {
			break
		}
		plan := plans[i%len(plans)]
		client := clients[i%len(clients)]

		loan, err := svc.Lending.CreateLoan(ctx, staff, lending.CreateLoanRequest{
			UserID:  client.ID,
			CopyID:  c.ID,
			DueDate: plan.due,
		})
		if err != nil {
			log.Printf("Failed to lend %s: %v", c.CatalogNumber, err)
			continue
		}
		if plan.returned {
			if _, err := svc.Lending.ReturnLoan(ctx, staff, loan.ID, plan.due.Add(-24*time.Hour)); err != nil {
				log.Printf("Failed to return loan %d: %v", loan.ID, err)
			}
		}
	}
}

// BookConfig holds a book and its category names for deferred assignment.
type BookConfig struct {
	Book          catalog.BookInput
	CategoryNames []string
	Copies        int
}

func getPublicDomainBooks() []BookConfig {
	return []BookConfig{
		{
			Book:          catalog.BookInput{Title: "Meditations", Author: "Marcus Aurelius", YearPublished: 1558},
			CategoryNames: []string{"Philosophy", "Classic"},
			Copies:        2,
		},
		{
			Book:          catalog.BookInput{Title: "Pride and Prejudice", Author: "Jane Austen", YearPublished: 1813},
			CategoryNames: []string{"Fiction", "Classic"},
			Copies:        3,
		},
		{
			Book:          catalog.BookInput{Title: "On the Origin of Species", Author: "Charles Darwin", YearPublished: 1859},
			CategoryNames: []string{"Science", "Classic"},
			Copies:        1,
		},
		{
			Book:          catalog.BookInput{Title: "Moby-Dick", Author: "Herman Melville", YearPublished: 1851},
			CategoryNames: []string{"Fiction", "Adventure"},
			Copies:        2,
		},
		{
			Book:          catalog.BookInput{Title: "The Art of War", Author: "Sun Tzu", YearPublished: 1910},
			CategoryNames: []string{"Philosophy"},
			Copies:        1,
		},
		{
			Book:          catalog.BookInput{Title: "Twenty Thousand Leagues Under the Seas", Author: "Jules Verne", YearPublished: 1870},
			CategoryNames: []string{"Fiction", "Adventure", "Science"},
			Copies:        2,
		},
	}
}
