// Command seed loads a small demo dataset for local development.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencampus/sis-api/pkg/config"
	"github.com/opencampus/sis-api/pkg/database"
)

type seedCourse struct {
	id, name, department string
	credits              int
	prerequisite         *string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seed(ctx, db, cfg); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("seed complete")
}

func seed(ctx context.Context, db *sqlx.DB, cfg *config.Config) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cs101 := "CS101"
	courses := []seedCourse{
		{id: "CS101", name: "Introduction to Computer Science", department: "Computer Science", credits: 3},
		{id: "CS201", name: "Data Structures", department: "Computer Science", credits: 4, prerequisite: &cs101},
		{id: "MATH150", name: "Calculus I", department: "Mathematics", credits: 4},
		{id: "ENG110", name: "Academic Writing", department: "English", credits: 3},
	}
	for _, c := range courses {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO courses (id, name, credits, department, prerequisite_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			c.id, c.name, c.credits, c.department, c.prerequisite); err != nil {
			return err
		}
	}

	instructorID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO instructors (id, first_name, last_name, email, department)
		VALUES ($1, 'Grace', 'Hopper', 'g.hopper@example.edu', 'Computer Science')
		ON CONFLICT (email) DO NOTHING`, instructorID); err != nil {
		return err
	}

	for _, courseID := range []string{"CS101", "CS201", "MATH150", "ENG110"} {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO sections (id, course_id, instructor_id, semester, year, max_capacity, max_waitlist, status, schedule)
			VALUES ($1, $2, $3, $4, $5, 30, 5, 'OPEN',
				'{"meetings":[{"days":["MON","WED"],"startTime":"10:00","endTime":"11:15","room":"H-201"}]}')
			ON CONFLICT (id) DO NOTHING`,
			uuid.NewString(), courseID, instructorID, cfg.Registration.Semester, cfg.Registration.Year); err != nil {
			return err
		}
	}

	studentID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO students (id, first_name, last_name, email, major, enrollment_date, date_of_birth)
		VALUES ($1, 'Ada', 'Lovelace', 'a.lovelace@example.edu', 'Computer Science', now(), '2006-12-10')
		ON CONFLICT (email) DO NOTHING`, studentID); err != nil {
		return err
	}

	var hash []byte
	hash, err = bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, student_id, email, password_hash, active)
		VALUES ($1, $2, 'a.lovelace@example.edu', $3, true)
		ON CONFLICT (email) DO NOTHING`, uuid.NewString(), studentID, string(hash)); err != nil {
		return err
	}

	return tx.Commit()
}
