package wallets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
	"gorm.io/gorm"
)

// StatementEntry is one ledger row rendered for the wallet screen.
type StatementEntry struct {
	ID             uuid.UUID             `json:"id"`
	OrderID        uuid.UUID             `json:"order_id"`
	Kind           enums.TransactionKind `json:"kind"`
	Amount         int64                 `json:"amount"`
	BalanceAfter   int64                 `json:"balance_after"`
	ProductName    string                `json:"product_name"`
	ProductImage   *string               `json:"product_image,omitempty"`
	Quantity       int                   `json:"quantity"`
	UnitPrice      int64                 `json:"unit_price"`
	CommissionRate *decimal.Decimal      `json:"commission_rate,omitempty"`
	TotalSale      *int64                `json:"total_sale,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Statement bundles the current balance with the transaction history page.
type Statement struct {
	Balance      int64            `json:"balance"`
	Transactions []StatementEntry `json:"transactions"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}

// Service exposes wallet reads.
type Service interface {
	Statement(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Statement, error)
}

type service struct {
	repo Repository
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallets repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Statement(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Statement, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}

	rows, next, err := s.repo.ListTransactions(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	statement := &Statement{
		Balance:      balance,
		Transactions: make([]StatementEntry, 0, len(rows)),
	}
	for _, row := range rows {
		statement.Transactions = append(statement.Transactions, toStatementEntry(row))
	}
	if next != nil {
		statement.NextCursor = pagination.EncodeCursor(*next)
	}
	return statement, nil
}

func toStatementEntry(row models.WalletTransaction) StatementEntry {
	return StatementEntry{
		ID:             row.ID,
		OrderID:        row.OrderID,
		Kind:           row.Kind,
		Amount:         row.Amount,
		BalanceAfter:   row.BalanceAfter,
		ProductName:    row.ProductName,
		ProductImage:   row.ProductImage,
		Quantity:       row.Quantity,
		UnitPrice:      row.UnitPrice,
		CommissionRate: row.CommissionRate,
		TotalSale:      row.TotalSale,
		CreatedAt:      row.CreatedAt,
	}
}
