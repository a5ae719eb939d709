package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/database"
	"vet-clinic/internal/logging"
	"vet-clinic/internal/shifts"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	insertUserQuery         = "INSERT INTO tb_user (uuid, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id"
	insertVeterinarianQuery = "INSERT INTO tb_veterinarian (uuid, user_id, name, email, mobile_phone, specialty) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id"
	insertGuardianQuery     = "INSERT INTO tb_guardian (uuid, name, national_id, email, mobile_phone) VALUES ($1, $2, $3, $4, $5) RETURNING id"
	insertPatientQuery      = "INSERT INTO tb_patient (uuid, guardian_id, name, species, active) VALUES ($1, $2, $3, $4, $5)"
	insertBlockQuery        = "INSERT INTO tb_availability_block (uuid, veterinarian_id, weekday, start_time, end_time) VALUES ($1, $2, $3, $4, $5)"
)

var (
	specialties = []string{"General Practice", "Surgery", "Dermatology", "Cardiology", "Exotic Animals", "Dentistry"}
	species     = []string{"Dog", "Cat", "Rabbit", "Bird", "Ferret", "Hamster"}

	// every seeded veterinarian works weekday mornings and afternoons
	seedBlocks = [][2]shifts.TimeOfDay{
		{shifts.NewTimeOfDay(9, 0, 0), shifts.NewTimeOfDay(13, 0, 0)},
		{shifts.NewTimeOfDay(14, 0, 0), shifts.NewTimeOfDay(18, 0, 0)},
	}
)

type seedOptions struct {
	veterinarians int
	receptionists int
	guardians     int
	password      string
}

func seedCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with fake staff, patients and working hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dbConn, logger, err := connect()
			if err != nil {
				return err
			}
			defer dbConn.Close()
			gofakeit.Seed(time.Now().UnixNano())
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err = seed(ctx, dbConn, opts); err != nil {
				return fmt.Errorf("could not seed the database: %w", err)
			}
			logging.PrintlnInfo(logger, fmt.Sprintf("seeded %d veterinarians, %d receptionists and %d guardians, every user with password %q",
				opts.veterinarians, opts.receptionists, opts.guardians, opts.password))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.veterinarians, "veterinarians", 5, "Number of veterinarians")
	cmd.Flags().IntVar(&opts.receptionists, "receptionists", 2, "Number of receptionists")
	cmd.Flags().IntVar(&opts.guardians, "guardians", 50, "Number of guardians, each with one to three patients")
	cmd.Flags().StringVar(&opts.password, "password", "clinic123", "Password of every seeded user")
	return cmd
}

func seed(ctx context.Context, dbConn database.Connection, opts seedOptions) error {
	passHash, err := auth.EncryptPassword(opts.password)
	if err != nil {
		return err
	}
	return database.WithTransaction(ctx, dbConn, func(tx *sql.Tx) error {
		if _, err := insertUser(ctx, tx, "admin@clinic.local", passHash, auth.AdminRole); err != nil {
			return err
		}
		for i := 0; i < opts.receptionists; i++ {
			if _, err := insertUser(ctx, tx, staffEmail(gofakeit.Name(), i), passHash, auth.ReceptionistRole); err != nil {
				return err
			}
		}
		for i := 0; i < opts.veterinarians; i++ {
			if err := seedVeterinarian(ctx, tx, i, passHash); err != nil {
				return err
			}
		}
		for i := 0; i < opts.guardians; i++ {
			if err := seedGuardian(ctx, tx, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// staffEmail builds an unique clinic email for the n-th user with the given name.
func staffEmail(name string, n int) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return !unicode.IsLetter(r) })
	local := strings.ToLower(strings.Join(words, "."))
	return fmt.Sprintf("%s.%d@clinic.local", local, n)
}

func insertUser(ctx context.Context, tx *sql.Tx, email, passHash string, role auth.Role) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, insertUserQuery, uuid.NewString(), email, passHash, string(role)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("could not insert user %s: %w", email, err)
	}
	return id, nil
}

func seedVeterinarian(ctx context.Context, tx *sql.Tx, n int, passHash string) error {
	name := "Dr. " + gofakeit.Name()
	email := staffEmail(name, n)
	userID, err := insertUser(ctx, tx, email, passHash, auth.VeterinarianRole)
	if err != nil {
		return err
	}
	var veterinarianID int64
	specialty := gofakeit.RandomString(specialties)
	err = tx.QueryRowContext(ctx, insertVeterinarianQuery, uuid.NewString(), userID, name, email, gofakeit.Phone(), specialty).Scan(&veterinarianID)
	if err != nil {
		return fmt.Errorf("could not insert veterinarian: %w", err)
	}
	for weekday := shifts.Monday; weekday <= shifts.Friday; weekday++ {
		for _, block := range seedBlocks {
			if _, err = tx.ExecContext(ctx, insertBlockQuery, uuid.NewString(), veterinarianID, int(weekday), block[0], block[1]); err != nil {
				return fmt.Errorf("could not insert block: %w", err)
			}
		}
	}
	return nil
}

func seedGuardian(ctx context.Context, tx *sql.Tx, n int) error {
	var guardianID int64
	nationalID := fmt.Sprintf("%08d-%d", n+1, gofakeit.Number(0, 9))
	err := tx.QueryRowContext(ctx, insertGuardianQuery, uuid.NewString(), gofakeit.Name(), nationalID, gofakeit.Email(), gofakeit.Phone()).Scan(&guardianID)
	if err != nil {
		return fmt.Errorf("could not insert guardian: %w", err)
	}
	for i := gofakeit.Number(1, 3); i > 0; i-- {
		active := gofakeit.Number(1, 10) > 1
		if _, err = tx.ExecContext(ctx, insertPatientQuery, uuid.NewString(), guardianID, gofakeit.PetName(), gofakeit.RandomString(species), active); err != nil {
			return fmt.Errorf("could not insert patient: %w", err)
		}
	}
	return nil
}
