// Package roster holds the management entities behind the dashboard:
// courses, students, lecturers, and FAQs, plus end-of-semester cleanup.
package roster

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Course is a taught course attendance sessions are opened for.
type Course struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Level      int       `json:"level"`
	LecturerID string    `json:"lecturer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Student is an enrolled student identified by matric number.
type Student struct {
	ID        string    `json:"id"`
	MatricNo  string    `json:"matric_no"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// Lecturer is a dashboard account; admins carry role "admin".
type Lecturer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FAQ is one support entry shown on the help page.
type FAQ struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrBadCredentials = errors.New("invalid email or password")

type lecturerStore interface {
	InsertLecturer(ctx context.Context, l Lecturer) (Lecturer, error)
	FindLecturerByEmail(ctx context.Context, email string) (*Lecturer, error)
}

// Service wraps the lecturer store with password handling.
type Service struct {
	repo lecturerStore
}

// NewService creates a service.
func NewService(repo lecturerStore) *Service {
	return &Service{repo: repo}
}

// CreateLecturer hashes the password and persists the account.
func (s *Service) CreateLecturer(ctx context.Context, email, name, role, password string) (Lecturer, error) {
	if email == "" || password == "" {
		return Lecturer{}, errors.New("email and password required")
	}
	if role == "" {
		role = "lecturer"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Lecturer{}, err
	}
	return s.repo.InsertLecturer(ctx, Lecturer{Email: email, Name: name, Role: role, PasswordHash: string(hash)})
}

// Authenticate checks lecturer credentials for login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Lecturer, error) {
	lect, err := s.repo.FindLecturerByEmail(ctx, email)
	if err != nil {
		return Lecturer{}, err
	}
	if lect == nil {
		return Lecturer{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(lect.PasswordHash), []byte(password)) != nil {
		return Lecturer{}, ErrBadCredentials
	}
	return *lect, nil
}
