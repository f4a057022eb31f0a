package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ymzhao891/medichat/internal/domain"
)

// RegisterPatient adds a patient to the directory.
func (s *Service) RegisterPatient(ctx context.Context, username, avatar string) (*domain.Patient, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	p := &domain.Patient{
		PatientID: uuid.New().String(),
		Username:  username,
		Avatar:    avatar,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterClinician adds a clinician to the directory, available by default.
func (s *Service) RegisterClinician(ctx context.Context, name, avatar, speciality string) (*domain.Clinician, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	c := &domain.Clinician{
		ClinicianID: uuid.New().String(),
		Name:        name,
		Avatar:      avatar,
		Speciality:  speciality,
		IsAvailable: true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateClinician(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListClinicians lists clinicians, optionally only the available ones.
func (s *Service) ListClinicians(ctx context.Context, onlyAvailable bool) ([]domain.Clinician, error) {
	return s.store.ListClinicians(ctx, onlyAvailable)
}

// SetClinicianAvailability updates a clinician's availability flag.
func (s *Service) SetClinicianAvailability(ctx context.Context, clinicianID string, available bool) error {
	return s.store.SetClinicianAvailability(ctx, clinicianID, available)
}
