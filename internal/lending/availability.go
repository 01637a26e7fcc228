package lending

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database/copies"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
)

// AvailabilityDrift describes a copy whose stored flag disagrees with the
// loans table, or that more than one active loan references.
type AvailabilityDrift struct {
	CopyID        uint   `json:"copy_id"`
	CatalogNumber string `json:"catalog_number"`
	Available     bool   `json:"available"`
	ActiveLoans   int64  `json:"active_loans"`
}

// Expected is the flag value the loans table implies.
func (d AvailabilityDrift) Expected() bool {
	return d.ActiveLoans == 0
}

// CheckAvailability lists every copy that breaks the availability rule.
// An empty result means the store is consistent.
func (s *Service) CheckAvailability(ctx context.Context) ([]AvailabilityDrift, error) {
	return findDrift(s.db.WithContext(ctx))
}

// ReconcileAvailability rewrites the flag of every drifted copy from the
// loans table and returns how many copies were repaired. Copies held by
// several active loans are reported but cannot be fixed by a flag write.
func (s *Service) ReconcileAvailability(ctx context.Context, actor Actor) (int, error) {
	repaired := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		drift, err := findDrift(tx)
		if err != nil {
			return err
		}
		repo := copies.NewRepository(tx)
		for _, d := range drift {
			if d.ActiveLoans > 1 {
				log.Printf("Loan lifecycle: copy %d (%s) is held by %d active loans", d.CopyID, d.CatalogNumber, d.ActiveLoans)
			}
			if d.Available == d.Expected() {
				continue
			}
			c, err := repo.GetByID(d.CopyID)
			if err != nil {
				return err
			}
			if err := repo.SetAvailable(c.ID, c.Version, d.Expected()); err != nil {
				return err
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if repaired > 0 {
		log.Printf("Loan lifecycle: repaired availability of %d copies", repaired)
		s.recordEvent(actor, entities.AuditEventMaintenance, "reconcile_availability", "copy", 0,
			fmt.Sprintf("Repaired availability of %d copies", repaired),
			map[string]any{"repaired": repaired})
	}
	return repaired, nil
}

func findDrift(db *gorm.DB) ([]AvailabilityDrift, error) {
	var all []entities.Copy
	if err := db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}
	counts, err := loans.NewRepository(db).ActiveCountsByCopy()
	if err != nil {
		return nil, err
	}

	var drift []AvailabilityDrift
	for _, c := range all {
		active := counts[c.ID]
		if c.Available == (active == 0) && active <= 1 {
			continue
		}
		drift = append(drift, AvailabilityDrift{
			CopyID:        c.ID,
			CatalogNumber: c.CatalogNumber,
			Available:     c.Available,
			ActiveLoans:   active,
		})
	}
	return drift, nil
}
