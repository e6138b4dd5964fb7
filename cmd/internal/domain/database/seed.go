package database

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"smallcrm/cmd/internal/domain/entity"
)

type SeedSegment struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

type SeedAppointmentType struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Color           string `yaml:"color"`
	Price           string `yaml:"price"`
}

type SeedFile struct {
	Segments         []SeedSegment         `yaml:"segments"`
	AppointmentTypes []SeedAppointmentType `yaml:"appointment_types"`
}

// LoadSeed reads a YAML catalog of segments and appointment types.
func LoadSeed(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// Apply inserts every catalog entry whose name is not yet present.
// Existing rows are left untouched.
func (s *SeedFile) Apply(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, seg := range s.Segments {
			row := entity.CustomerSegment{Name: seg.Name, Description: seg.Description, Color: colorOrDefault(seg.Color)}
			if err := tx.Where(entity.CustomerSegment{Name: seg.Name}).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed segment %s: %w", seg.Name, err)
			}
		}
		for _, at := range s.AppointmentTypes {
			if at.DurationMinutes <= 0 {
				return fmt.Errorf("seed appointment type %s: duration must be positive", at.Name)
			}
			price, err := decimal.NewFromString(priceOrZero(at.Price))
			if err != nil {
				return fmt.Errorf("seed appointment type %s: invalid price: %w", at.Name, err)
			}
			row := entity.AppointmentType{
				Name:            at.Name,
				Description:     at.Description,
				DurationMinutes: at.DurationMinutes,
				Color:           colorOrDefault(at.Color),
				Price:           price,
			}
			if err := tx.Where(entity.AppointmentType{Name: at.Name}).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed appointment type %s: %w", at.Name, err)
			}
		}
		return nil
	})
}

func colorOrDefault(c string) string {
	if c == "" {
		return "#007bff"
	}
	return c
}

func priceOrZero(p string) string {
	if p == "" {
		return "0"
	}
	return p
}
