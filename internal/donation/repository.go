package donation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mediloop/internal/database"
)

type Repository struct {
	DB database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) Insert(ctx context.Context, d Donation) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO donations
		(id, medication_name, dosage, quantity, expiry_date, med_condition, prescription_required,
		 donor_name, donor_phone, donor_address, donor_user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, id, d.MedicationName, d.Dosage, d.Quantity, d.ExpiryDate, string(d.Condition), d.PrescriptionRequired,
		d.DonorName, d.DonorPhone, d.DonorAddress, d.DonorUserID)
	if err != nil {
		return "", fmt.Errorf("insert donation: %w", err)
	}
	return id, nil
}
