package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"smallcrm/cmd/internal/cache"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

type CustomerRepository interface {
	Search(ctx context.Context, q repository.CustomerQuery) ([]*entity.Customer, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, customer *entity.Customer) error
	Save(ctx context.Context, customer *entity.Customer) error
	UpdateRevenue(ctx context.Context, id uuid.UUID, revenue decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	Counts(ctx context.Context, since int64) (*repository.CustomerCounts, error)
}

type InteractionRepository interface {
	Create(ctx context.Context, interaction *entity.CustomerInteraction) error
	FindRecent(ctx context.Context, customerID uuid.UUID, limit int) ([]*entity.CustomerInteraction, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *entity.Purchase) error
	FindRecent(ctx context.Context, customerID uuid.UUID, limit int) ([]*entity.Purchase, error)
	Totals(ctx context.Context, customerID uuid.UUID) (int64, decimal.Decimal, error)
}

const recentLimit = 10

type CustomerRequest struct {
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Phone            string `json:"phone" validate:"max=20"`
	Address          string `json:"address" validate:"max=500"`
	City             string `json:"city" validate:"max=100"`
	State            string `json:"state" validate:"max=50"`
	PostalCode       string `json:"postal_code" validate:"max=20"`
	Country          string `json:"country" validate:"max=100"`
	Company          string `json:"company" validate:"max=200"`
	Position         string `json:"position" validate:"max=100"`
	SegmentID        *int   `json:"segment_id"`
	Status           string `json:"status" validate:"required,oneof=active inactive prospect lost"`
	Notes            string `json:"notes"`
	FollowUpRequired bool   `json:"follow_up_required"`
}

type CustomerListParams struct {
	Search  string
	Segment string
	Status  string
	Page    string
}

type InteractionRequest struct {
	InteractionType string `json:"interaction_type" validate:"required,oneof=email phone meeting note purchase support"`
	Subject         string `json:"subject" validate:"required,max=200"`
	Description     string `json:"description" validate:"required"`
}

type PurchaseRequest struct {
	ProductService string `json:"product_service" validate:"required,max=200"`
	Amount         string `json:"amount" validate:"required,money"`
	PurchaseDate   string `json:"purchase_date" validate:"omitempty,iso8601"`
	Description    string `json:"description"`
}

type CustomerResponse struct {
	ID               string           `json:"id"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	FullName         string           `json:"full_name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Address          string           `json:"address"`
	City             string           `json:"city"`
	State            string           `json:"state"`
	PostalCode       string           `json:"postal_code"`
	Country          string           `json:"country"`
	Company          string           `json:"company"`
	Position         string           `json:"position"`
	Segment          *SegmentResponse `json:"segment"`
	Status           string           `json:"status"`
	TotalRevenue     string           `json:"total_revenue"`
	Notes            string           `json:"notes"`
	FollowUpRequired bool             `json:"follow_up_required"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
}

type CustomerPage struct {
	Customers []*CustomerResponse `json:"customers"`
	Page
}

type InteractionResponse struct {
	ID              int    `json:"id"`
	InteractionType string `json:"interaction_type"`
	Subject         string `json:"subject"`
	Description     string `json:"description"`
	CreatedByID     int    `json:"created_by_id"`
	CreatedAt       string `json:"created_at"`
}

type PurchaseResponse struct {
	ID             int    `json:"id"`
	ProductService string `json:"product_service"`
	Amount         string `json:"amount"`
	PurchaseDate   string `json:"purchase_date"`
	Description    string `json:"description"`
}

type CustomerDetailResponse struct {
	Customer           *CustomerResponse      `json:"customer"`
	RecentInteractions []*InteractionResponse `json:"recent_interactions"`
	RecentPurchases    []*PurchaseResponse    `json:"recent_purchases"`
	TotalPurchases     int64                  `json:"total_purchases"`
	TotalRevenue       string                 `json:"total_revenue"`
	LastInteraction    *InteractionResponse   `json:"last_interaction"`
}

type CustomerStatsResponse struct {
	TotalCustomers     int64                     `json:"total_customers"`
	ActiveCustomers    int64                     `json:"active_customers"`
	Prospects          int64                     `json:"prospects"`
	TotalRevenue       string                    `json:"total_revenue"`
	CustomersBySegment []repository.SegmentCount `json:"customers_by_segment"`
	RecentCustomers    int64                     `json:"recent_customers"`
}

type DefaultCustomerService struct {
	CustomerRepo    CustomerRepository
	SegmentRepo     SegmentRepository
	InteractionRepo InteractionRepository
	PurchaseRepo    PurchaseRepository
	UserRepo        UserRepository
	Tx              Transactor
	Validate        *validator.Validate
	Location        *time.Location
	Now             func() time.Time
	// Cache holds the appointment dashboard; deleting a customer removes
	// their appointments with it.
	Cache cache.Cache
}

func NewCustomerService(
	customerRepo CustomerRepository,
	segmentRepo SegmentRepository,
	interactionRepo InteractionRepository,
	purchaseRepo PurchaseRepository,
	userRepo UserRepository,
	tx Transactor,
	validate *validator.Validate,
	loc *time.Location,
) *DefaultCustomerService {
	return &DefaultCustomerService{
		CustomerRepo:    customerRepo,
		SegmentRepo:     segmentRepo,
		InteractionRepo: interactionRepo,
		PurchaseRepo:    purchaseRepo,
		UserRepo:        userRepo,
		Tx:              tx,
		Validate:        validate,
		Location:        loc,
		Now:             time.Now,
		Cache:           cache.NoopCache{},
	}
}

func (s *DefaultCustomerService) ListCustomers(ctx context.Context, params CustomerListParams) (*CustomerPage, apierror.ErrorResponse) {
	page, apierr := parsePage(params.Page)
	if apierr != nil {
		return nil, apierr
	}

	query := repository.CustomerQuery{
		Search: params.Search,
		Offset: (page - 1) * PageSize,
		Limit:  PageSize,
	}
	if params.Segment != "" {
		segmentID, err := strconv.Atoi(params.Segment)
		if err != nil {
			return nil, apierror.NewInvalidParamTypeError("segment", "int32")
		}
		query.SegmentID = &segmentID
	}
	if params.Status != "" {
		status := entity.CustomerStatus(params.Status)
		if !validCustomerStatus(status) {
			return nil, apierror.NewInvalidParamError("status", "unknown customer status")
		}
		query.Status = status
	}

	customers, total, err := s.CustomerRepo.Search(ctx, query)
	if err != nil {
		log.Errorf("failed to search customers: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := &CustomerPage{Customers: make([]*CustomerResponse, len(customers)), Page: newPage(page, total)}
	for i, customer := range customers {
		resp.Customers[i] = toCustomerResponse(customer)
	}
	return resp, nil
}

func (s *DefaultCustomerService) CreateCustomer(ctx context.Context, req *CustomerRequest, callerSub string) (*CustomerResponse, apierror.ErrorResponse) {
	caller, apierr := resolveCaller(ctx, s.UserRepo, callerSub)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}
	if apierr := s.checkCustomerRefs(ctx, req, nil); apierr != nil {
		return nil, apierr
	}

	customer := &entity.Customer{CreatedByID: &caller.ID}
	applyCustomerRequest(customer, req)

	if err := s.CustomerRepo.Create(ctx, customer); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.CustomerEmailTakenError
		}
		log.Errorf("failed to create customer: %v", err)
		return nil, apierror.InternalServerError
	}
	return s.reloadCustomer(ctx, customer.ID)
}

func (s *DefaultCustomerService) GetCustomer(ctx context.Context, rawId string) (*CustomerDetailResponse, apierror.ErrorResponse) {
	customer, apierr := s.fetchCustomer(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	interactions, err := s.InteractionRepo.FindRecent(ctx, customer.ID, recentLimit)
	if err != nil {
		log.Errorf("failed to fetch interactions of customer %s: %v", customer.ID, err)
		return nil, apierror.InternalServerError
	}
	purchases, err := s.PurchaseRepo.FindRecent(ctx, customer.ID, recentLimit)
	if err != nil {
		log.Errorf("failed to fetch purchases of customer %s: %v", customer.ID, err)
		return nil, apierror.InternalServerError
	}
	count, _, err := s.PurchaseRepo.Totals(ctx, customer.ID)
	if err != nil {
		log.Errorf("failed to count purchases of customer %s: %v", customer.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := &CustomerDetailResponse{
		Customer:           toCustomerResponse(customer),
		RecentInteractions: make([]*InteractionResponse, len(interactions)),
		RecentPurchases:    make([]*PurchaseResponse, len(purchases)),
		TotalPurchases:     count,
		TotalRevenue:       customer.TotalRevenue.StringFixed(2),
	}
	for i, interaction := range interactions {
		resp.RecentInteractions[i] = toInteractionResponse(interaction)
	}
	for i, purchase := range purchases {
		resp.RecentPurchases[i] = toPurchaseResponse(purchase)
	}
	if len(resp.RecentInteractions) > 0 {
		resp.LastInteraction = resp.RecentInteractions[0]
	}
	return resp, nil
}

func (s *DefaultCustomerService) UpdateCustomer(ctx context.Context, rawId string, req *CustomerRequest) (*CustomerResponse, apierror.ErrorResponse) {
	customer, apierr := s.fetchCustomer(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}
	if apierr := s.checkCustomerRefs(ctx, req, &customer.ID); apierr != nil {
		return nil, apierr
	}

	applyCustomerRequest(customer, req)
	customer.Segment = nil

	if err := s.CustomerRepo.Save(ctx, customer); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.CustomerEmailTakenError
		}
		log.Errorf("failed to update customer %s: %v", customer.ID, err)
		return nil, apierror.InternalServerError
	}
	return s.reloadCustomer(ctx, customer.ID)
}

func (s *DefaultCustomerService) DeleteCustomer(ctx context.Context, rawId string) apierror.ErrorResponse {
	customer, apierr := s.fetchCustomer(ctx, rawId)
	if apierr != nil {
		return apierr
	}

	if err := s.CustomerRepo.Delete(ctx, customer.ID); err != nil {
		log.Errorf("failed to delete customer %s: %v", customer.ID, err)
		return apierror.InternalServerError
	}
	evictAppointmentStats(ctx, s.Cache)
	return nil
}

func (s *DefaultCustomerService) AddInteraction(ctx context.Context, rawId string, req *InteractionRequest, callerSub string) (*InteractionResponse, apierror.ErrorResponse) {
	caller, apierr := resolveCaller(ctx, s.UserRepo, callerSub)
	if apierr != nil {
		return nil, apierr
	}
	customer, apierr := s.fetchCustomer(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	interaction := &entity.CustomerInteraction{
		CustomerID:      customer.ID,
		InteractionType: entity.InteractionType(req.InteractionType),
		Subject:         req.Subject,
		Description:     req.Description,
		CreatedByID:     caller.ID,
	}
	if err := s.InteractionRepo.Create(ctx, interaction); err != nil {
		log.Errorf("failed to create interaction for customer %s: %v", customer.ID, err)
		return nil, apierror.InternalServerError
	}
	return toInteractionResponse(interaction), nil
}

// AddPurchase records a purchase and recomputes the customer's total revenue
// from all of their purchases in the same transaction.
func (s *DefaultCustomerService) AddPurchase(ctx context.Context, rawId string, req *PurchaseRequest) (*PurchaseResponse, apierror.ErrorResponse) {
	customer, apierr := s.fetchCustomer(ctx, rawId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, apierror.NewInvalidParamError("amount", "not a decimal amount")
	}
	purchaseDate := s.Now().UnixMilli()
	if req.PurchaseDate != "" {
		if purchaseDate, err = utils.FromEpoch(req.PurchaseDate); err != nil {
			return nil, apierror.MalformedBodyError
		}
	}

	purchase := &entity.Purchase{
		CustomerID:     customer.ID,
		ProductService: req.ProductService,
		Amount:         amount,
		PurchaseDate:   purchaseDate,
		Description:    req.Description,
	}

	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.PurchaseRepo.Create(ctx, purchase); err != nil {
			return err
		}
		_, total, err := s.PurchaseRepo.Totals(ctx, customer.ID)
		if err != nil {
			return err
		}
		return s.CustomerRepo.UpdateRevenue(ctx, customer.ID, total)
	})
	if err != nil {
		log.Errorf("failed to record purchase for customer %s: %v", customer.ID, err)
		return nil, apierror.InternalServerError
	}
	return toPurchaseResponse(purchase), nil
}

func (s *DefaultCustomerService) GetStats(ctx context.Context) (*CustomerStatsResponse, apierror.ErrorResponse) {
	since := s.Now().AddDate(0, 0, -30).UnixMilli()
	counts, err := s.CustomerRepo.Counts(ctx, since)
	if err != nil {
		log.Errorf("failed to compute customer stats: %v", err)
		return nil, apierror.InternalServerError
	}

	bySegment := counts.BySegment
	if bySegment == nil {
		bySegment = []repository.SegmentCount{}
	}
	return &CustomerStatsResponse{
		TotalCustomers:     counts.Total,
		ActiveCustomers:    counts.Active,
		Prospects:          counts.Prospects,
		TotalRevenue:       counts.TotalRevenue.StringFixed(2),
		CustomersBySegment: bySegment,
		RecentCustomers:    counts.CreatedSince,
	}, nil
}

func (s *DefaultCustomerService) fetchCustomer(ctx context.Context, rawId string) (*entity.Customer, apierror.ErrorResponse) {
	id, apierr := parseUUID("id", rawId)
	if apierr != nil {
		return nil, apierr
	}
	customer, err := s.CustomerRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to find customer %s: %v", rawId, err)
		return nil, apierror.InternalServerError
	}
	if customer == nil {
		return nil, apierror.NotFoundError
	}
	return customer, nil
}

func (s *DefaultCustomerService) reloadCustomer(ctx context.Context, id uuid.UUID) (*CustomerResponse, apierror.ErrorResponse) {
	customer, err := s.CustomerRepo.FindByID(ctx, id)
	if err != nil || customer == nil {
		log.Errorf("failed to reload customer %s: %v", id, err)
		return nil, apierror.InternalServerError
	}
	return toCustomerResponse(customer), nil
}

// checkCustomerRefs validates the email uniqueness and the segment reference.
func (s *DefaultCustomerService) checkCustomerRefs(ctx context.Context, req *CustomerRequest, self *uuid.UUID) apierror.ErrorResponse {
	taken, err := s.CustomerRepo.ExistsByEmail(ctx, req.Email, self)
	if err != nil {
		log.Errorf("failed to check customer email: %v", err)
		return apierror.InternalServerError
	}
	if taken {
		return apierror.CustomerEmailTakenError
	}

	if req.SegmentID == nil {
		return nil
	}
	segment, err := s.SegmentRepo.FindByID(ctx, *req.SegmentID)
	if err != nil {
		log.Errorf("failed to find segment %d: %v", *req.SegmentID, err)
		return apierror.InternalServerError
	}
	if segment == nil {
		return apierror.NewInvalidParamError("segment_id", "segment does not exist")
	}
	return nil
}

func applyCustomerRequest(customer *entity.Customer, req *CustomerRequest) {
	customer.FirstName = req.FirstName
	customer.LastName = req.LastName
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Address = req.Address
	customer.City = req.City
	customer.State = req.State
	customer.PostalCode = req.PostalCode
	customer.Country = req.Country
	customer.Company = req.Company
	customer.Position = req.Position
	customer.SegmentID = req.SegmentID
	customer.Status = entity.CustomerStatus(req.Status)
	customer.Notes = req.Notes
	customer.FollowUpRequired = req.FollowUpRequired
}

func validCustomerStatus(status entity.CustomerStatus) bool {
	switch status {
	case entity.CustomerActive, entity.CustomerInactive, entity.CustomerProspect, entity.CustomerLost:
		return true
	}
	return false
}

func toCustomerResponse(customer *entity.Customer) *CustomerResponse {
	resp := &CustomerResponse{
		ID:               customer.ID.String(),
		FirstName:        customer.FirstName,
		LastName:         customer.LastName,
		FullName:         customer.FullName(),
		Email:            customer.Email,
		Phone:            customer.Phone,
		Address:          customer.Address,
		City:             customer.City,
		State:            customer.State,
		PostalCode:       customer.PostalCode,
		Country:          customer.Country,
		Company:          customer.Company,
		Position:         customer.Position,
		Status:           string(customer.Status),
		TotalRevenue:     customer.TotalRevenue.StringFixed(2),
		Notes:            customer.Notes,
		FollowUpRequired: customer.FollowUpRequired,
		CreatedAt:        utils.FormatEpoch(customer.CreatedAt),
		UpdatedAt:        utils.FormatEpoch(customer.UpdatedAt),
	}
	if customer.Segment != nil {
		resp.Segment = toSegmentResponse(customer.Segment)
	}
	return resp
}

func toInteractionResponse(interaction *entity.CustomerInteraction) *InteractionResponse {
	return &InteractionResponse{
		ID:              interaction.ID,
		InteractionType: string(interaction.InteractionType),
		Subject:         interaction.Subject,
		Description:     interaction.Description,
		CreatedByID:     interaction.CreatedByID,
		CreatedAt:       utils.FormatEpoch(interaction.CreatedAt),
	}
}

func toPurchaseResponse(purchase *entity.Purchase) *PurchaseResponse {
	return &PurchaseResponse{
		ID:             purchase.ID,
		ProductService: purchase.ProductService,
		Amount:         purchase.Amount.StringFixed(2),
		PurchaseDate:   utils.FormatEpoch(purchase.PurchaseDate),
		Description:    purchase.Description,
	}
}
