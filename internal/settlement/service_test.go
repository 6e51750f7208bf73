package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/products"
	"github.com/sokonihq/sokoni-backend/internal/wallets"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/outbox"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
)

type stubWalletsRepo struct {
	balances      map[uuid.UUID]int64
	transactions  []models.WalletTransaction
	creditErr     error
	createErr     error
	failOnKind    enums.TransactionKind
	missingWallet uuid.UUID
}

func newStubWalletsRepo(balances map[uuid.UUID]int64) *stubWalletsRepo {
	return &stubWalletsRepo{balances: balances}
}

func (s *stubWalletsRepo) WithTx(tx *gorm.DB) wallets.Repository {
	return s
}

func (s *stubWalletsRepo) FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	balance, ok := s.balances[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Profile{ID: userID, WalletBalance: balance}, nil
}

func (s *stubWalletsRepo) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, ok := s.balances[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (s *stubWalletsRepo) CreditBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	if s.creditErr != nil {
		return 0, s.creditErr
	}
	if userID == s.missingWallet {
		return 0, gorm.ErrRecordNotFound
	}
	if _, ok := s.balances[userID]; !ok {
		return 0, gorm.ErrRecordNotFound
	}
	s.balances[userID] += delta
	return s.balances[userID], nil
}

func (s *stubWalletsRepo) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if s.createErr != nil && txn.Kind == s.failOnKind {
		return s.createErr
	}
	s.transactions = append(s.transactions, *txn)
	return nil
}

func (s *stubWalletsRepo) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubWalletsRepo) rowsOfKind(kind enums.TransactionKind) []models.WalletTransaction {
	var matched []models.WalletTransaction
	for _, txn := range s.transactions {
		if txn.Kind == kind {
			matched = append(matched, txn)
		}
	}
	return matched
}

type stubProductsRepo struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) products.Repository {
	return s
}

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubProductsRepo) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	service  Service
	wallets  *stubWalletsRepo
	products *stubProductsRepo
	outbox   *stubOutbox
	order    *models.Order
}

func newFixture(t *testing.T, withAffiliate bool) *fixture {
	t.Helper()

	buyer := uuid.New()
	seller := uuid.New()
	product := &models.Product{
		ID:                    uuid.New(),
		SellerID:              seller,
		Name:                  "Ceramic vase",
		Price:                 12500,
		DefaultCommissionRate: decimal.NewFromInt(10),
	}

	order := &models.Order{
		ID:               uuid.New(),
		BuyerID:          buyer,
		SellerID:         seller,
		ProductID:        product.ID,
		Amount:           25000,
		Quantity:         2,
		CommissionAmount: 2500,
		Status:           enums.OrderStatusDelivered,
		Source:           enums.OrderSourceDirect,
	}

	balances := map[uuid.UUID]int64{buyer: 0, seller: 1000}
	if withAffiliate {
		affiliate := uuid.New()
		order.AffiliateID = &affiliate
		balances[affiliate] = 0
	}

	f := &fixture{
		wallets:  newStubWalletsRepo(balances),
		products: &stubProductsRepo{products: map[uuid.UUID]*models.Product{product.ID: product}},
		outbox:   &stubOutbox{},
		order:    order,
	}

	svc, err := NewService(f.wallets, f.products, f.outbox, nil, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	f.service = svc
	return f
}

// The tx handle is only threaded through the repositories, so the stubs accept
// a nil one.
var testTx = &gorm.DB{}

func TestSettleCreditsSellerAndAffiliate(t *testing.T) {
	f := newFixture(t, true)

	result, err := f.service.Settle(context.Background(), testTx, f.order)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if result.SellerCredited != 22500 {
		t.Fatalf("expected seller credit 22500, got %d", result.SellerCredited)
	}
	if result.AffiliateCredited != 2500 {
		t.Fatalf("expected affiliate credit 2500, got %d", result.AffiliateCredited)
	}
	if !result.CommissionPaid {
		t.Fatal("expected commission to be paid")
	}

	if got := f.wallets.balances[f.order.SellerID]; got != 1000+22500 {
		t.Fatalf("seller balance = %d, want %d", got, 1000+22500)
	}
	if got := f.wallets.balances[*f.order.AffiliateID]; got != 2500 {
		t.Fatalf("affiliate balance = %d, want 2500", got)
	}
	// the buyer paid through the gateway, not the wallet
	if got := f.wallets.balances[f.order.BuyerID]; got != 0 {
		t.Fatalf("buyer balance should be untouched, got %d", got)
	}

	sales := f.wallets.rowsOfKind(enums.TransactionKindSale)
	if len(sales) != 1 || sales[0].Amount != 22500 || sales[0].UserID != f.order.SellerID {
		t.Fatalf("unexpected sale rows: %+v", sales)
	}
	purchases := f.wallets.rowsOfKind(enums.TransactionKindPurchase)
	if len(purchases) != 1 || purchases[0].Amount != 25000 || purchases[0].UserID != f.order.BuyerID {
		t.Fatalf("unexpected purchase rows: %+v", purchases)
	}
	commissions := f.wallets.rowsOfKind(enums.TransactionKindCommission)
	if len(commissions) != 1 {
		t.Fatalf("expected 1 commission row, got %d", len(commissions))
	}
	commission := commissions[0]
	if commission.Amount != 2500 || commission.UserID != *f.order.AffiliateID {
		t.Fatalf("unexpected commission row: %+v", commission)
	}
	if commission.CommissionRate == nil || !commission.CommissionRate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected commission rate 10, got %v", commission.CommissionRate)
	}
	if commission.TotalSale == nil || *commission.TotalSale != 25000 {
		t.Fatalf("expected total sale 25000, got %v", commission.TotalSale)
	}

	if len(f.outbox.events) != 1 {
		t.Fatalf("expected 1 settlement event, got %d", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventSettlementCompleted {
		t.Fatalf("unexpected event type %s", f.outbox.events[0].EventType)
	}
}

func TestSettleWithoutAffiliate(t *testing.T) {
	f := newFixture(t, false)

	result, err := f.service.Settle(context.Background(), testTx, f.order)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	// the platform fee still comes out of the sale; with nobody attached to
	// receive it there is simply no commission payout
	if result.SellerCredited != 22500 {
		t.Fatalf("expected seller credit 22500, got %d", result.SellerCredited)
	}
	if result.CommissionPaid || result.AffiliateCredited != 0 {
		t.Fatalf("no commission payout expected, got %+v", result)
	}
	if rows := f.wallets.rowsOfKind(enums.TransactionKindCommission); len(rows) != 0 {
		t.Fatalf("expected no commission rows, got %d", len(rows))
	}
	if got := f.wallets.balances[f.order.SellerID]; got != 1000+22500 {
		t.Fatalf("seller balance = %d, want %d", got, 1000+22500)
	}
}

func TestSettleMissingProductUsesPlaceholder(t *testing.T) {
	f := newFixture(t, true)
	f.products.products = map[uuid.UUID]*models.Product{}

	_, err := f.service.Settle(context.Background(), testTx, f.order)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	sales := f.wallets.rowsOfKind(enums.TransactionKindSale)
	if len(sales) != 1 || sales[0].ProductName != "(product unavailable)" {
		t.Fatalf("expected placeholder product name, got %+v", sales)
	}
	commissions := f.wallets.rowsOfKind(enums.TransactionKindCommission)
	if len(commissions) != 1 {
		t.Fatalf("expected commission row, got %d", len(commissions))
	}
	// 2500 of 25000 is a 10% effective rate
	if commissions[0].CommissionRate == nil || !commissions[0].CommissionRate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected derived rate 10, got %v", commissions[0].CommissionRate)
	}
}

func TestSettleStepFailureIsTagged(t *testing.T) {
	f := newFixture(t, true)
	f.wallets.creditErr = errors.New("connection reset")

	_, err := f.service.Settle(context.Background(), testTx, f.order)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected a coded error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodePartialSettlement {
		t.Fatalf("expected PARTIAL_SETTLEMENT, got %s", typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["step"] != "seller_credit" {
		t.Fatalf("expected step detail seller_credit, got %v", typed.Details())
	}
}

func TestSettleCommissionRowFailureRollsUp(t *testing.T) {
	f := newFixture(t, true)
	f.wallets.createErr = errors.New("unique violation")
	f.wallets.failOnKind = enums.TransactionKindCommission

	_, err := f.service.Settle(context.Background(), testTx, f.order)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePartialSettlement {
		t.Fatalf("expected PARTIAL_SETTLEMENT, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if details["step"] != "commission_record" {
		t.Fatalf("expected step commission_record, got %v", details)
	}
}

func TestSettleOutboxFailure(t *testing.T) {
	f := newFixture(t, false)
	f.outbox.err = errors.New("insert failed")

	_, err := f.service.Settle(context.Background(), testTx, f.order)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePartialSettlement {
		t.Fatalf("expected PARTIAL_SETTLEMENT, got %v", err)
	}
}

func TestSettleRequiresTx(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.Settle(context.Background(), nil, f.order)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR for nil tx, got %v", err)
	}
}
