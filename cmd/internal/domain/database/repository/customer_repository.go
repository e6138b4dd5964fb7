package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"smallcrm/cmd/internal/domain/entity"
)

// CustomerQuery filters the customer list. Zero values disable a filter;
// a non-positive Limit returns every match.
type CustomerQuery struct {
	Search    string
	SegmentID *int
	Status    entity.CustomerStatus
	Offset    int
	Limit     int
}

type SegmentCount struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int64  `json:"count"`
}

type CustomerCounts struct {
	Total        int64
	Active       int64
	Prospects    int64
	CreatedSince int64
	TotalRevenue decimal.Decimal
	BySegment    []SegmentCount
}

type DefaultCustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *DefaultCustomerRepository {
	return &DefaultCustomerRepository{db: db}
}

func (r *DefaultCustomerRepository) Search(ctx context.Context, q CustomerQuery) ([]*entity.Customer, int64, error) {
	query := conn(ctx, r.db).Model(&entity.Customer{})
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?",
			like, like, like, like,
		)
	}
	if q.SegmentID != nil {
		query = query.Where("segment_id = ?", *q.SegmentID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var customers []*entity.Customer
	query = query.Preload("Segment").Order("created_at desc").Order("id asc")
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}
	err := query.Find(&customers).Error
	return customers, total, err
}

func (r *DefaultCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	var customer entity.Customer
	err := conn(ctx, r.db).Preload("Segment").First(&customer, "id = ?", id).Error
	return notFoundAsNil(&customer, err)
}

// ExistsByEmail matches case-insensitively, ignoring the customer excludeID.
func (r *DefaultCustomerRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	query := conn(ctx, r.db).Model(&entity.Customer{}).
		Where("LOWER(email) = ?", strings.ToLower(email))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *DefaultCustomerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(customer).Error
}

func (r *DefaultCustomerRepository) Save(ctx context.Context, customer *entity.Customer) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(customer).Error
}

func (r *DefaultCustomerRepository) UpdateRevenue(ctx context.Context, id uuid.UUID, revenue decimal.Decimal) error {
	return conn(ctx, r.db).Model(&entity.Customer{}).
		Where("id = ?", id).
		Update("total_revenue", revenue).Error
}

// Delete removes a customer together with its interactions, purchases,
// appointments and appointment notes.
func (r *DefaultCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		apptIDs := tx.Model(&entity.Appointment{}).Select("id").Where("customer_id = ?", id)
		if err := tx.Where("appointment_id IN (?)", apptIDs).Delete(&entity.AppointmentNote{}).Error; err != nil {
			return err
		}
		dependents := []any{&entity.Appointment{}, &entity.CustomerInteraction{}, &entity.Purchase{}}
		for _, model := range dependents {
			if err := tx.Where("customer_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&entity.Customer{}, "id = ?", id).Error
	})
}

func (r *DefaultCustomerRepository) Counts(ctx context.Context, since int64) (*CustomerCounts, error) {
	db := conn(ctx, r.db)
	counts := &CustomerCounts{}

	if err := db.Model(&entity.Customer{}).Count(&counts.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entity.Customer{}).Where("status = ?", entity.CustomerActive).Count(&counts.Active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entity.Customer{}).Where("status = ?", entity.CustomerProspect).Count(&counts.Prospects).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entity.Customer{}).Where("created_at >= ?", since).Count(&counts.CreatedSince).Error; err != nil {
		return nil, err
	}

	var revenues []decimal.Decimal
	if err := db.Model(&entity.Customer{}).Pluck("total_revenue", &revenues).Error; err != nil {
		return nil, err
	}
	counts.TotalRevenue = decimal.Sum(decimal.Zero, revenues...)

	err := db.Model(&entity.CustomerSegment{}).
		Select("customer_segments.name AS name, customer_segments.color AS color, COUNT(customers.id) AS count").
		Joins("LEFT JOIN customers ON customers.segment_id = customer_segments.id").
		Group("customer_segments.id, customer_segments.name, customer_segments.color").
		Order("customer_segments.name asc").
		Scan(&counts.BySegment).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

type DefaultInteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *DefaultInteractionRepository {
	return &DefaultInteractionRepository{db: db}
}

func (r *DefaultInteractionRepository) Create(ctx context.Context, interaction *entity.CustomerInteraction) error {
	return conn(ctx, r.db).Create(interaction).Error
}

// FindRecent returns the newest interactions of a customer first.
func (r *DefaultInteractionRepository) FindRecent(ctx context.Context, customerID uuid.UUID, limit int) ([]*entity.CustomerInteraction, error) {
	var interactions []*entity.CustomerInteraction
	err := conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&interactions).Error
	return interactions, err
}

type DefaultPurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *DefaultPurchaseRepository {
	return &DefaultPurchaseRepository{db: db}
}

func (r *DefaultPurchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	return conn(ctx, r.db).Create(purchase).Error
}

func (r *DefaultPurchaseRepository) FindRecent(ctx context.Context, customerID uuid.UUID, limit int) ([]*entity.Purchase, error) {
	var purchases []*entity.Purchase
	err := conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("purchase_date desc").Order("id desc").
		Limit(limit).
		Find(&purchases).Error
	return purchases, err
}

// Totals returns the number of purchases of a customer and their summed amount.
func (r *DefaultPurchaseRepository) Totals(ctx context.Context, customerID uuid.UUID) (int64, decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := conn(ctx, r.db).Model(&entity.Purchase{}).
		Where("customer_id = ?", customerID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	return int64(len(amounts)), decimal.Sum(decimal.Zero, amounts...), nil
}
