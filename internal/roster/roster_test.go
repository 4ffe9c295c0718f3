package roster

import (
	"context"
	"errors"
	"testing"
)

type fakeLecturerStore struct {
	byEmail map[string]*Lecturer
}

func (f *fakeLecturerStore) InsertLecturer(_ context.Context, l Lecturer) (Lecturer, error) {
	if f.byEmail == nil {
		f.byEmail = map[string]*Lecturer{}
	}
	stored := l
	f.byEmail[l.Email] = &stored
	return l, nil
}

func (f *fakeLecturerStore) FindLecturerByEmail(_ context.Context, email string) (*Lecturer, error) {
	return f.byEmail[email], nil
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeLecturerStore{})

	created, err := svc.CreateLecturer(ctx, "ada@uni.edu", "Dr. Ada", "", "s3cret")
	if err != nil {
		t.Fatalf("CreateLecturer() error = %v", err)
	}
	if created.Role != "lecturer" {
		t.Errorf("default role = %q, want lecturer", created.Role)
	}
	if created.PasswordHash == "s3cret" || created.PasswordHash == "" {
		t.Error("password stored without hashing")
	}

	got, err := svc.Authenticate(ctx, "ada@uni.edu", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Email != "ada@uni.edu" {
		t.Errorf("Email = %q, want ada@uni.edu", got.Email)
	}

	if _, err := svc.Authenticate(ctx, "ada@uni.edu", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password error = %v, want ErrBadCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@uni.edu", "s3cret"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown email error = %v, want ErrBadCredentials", err)
	}
}
