package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hondusoft/fieldsales-backend/pkg/db/models"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

// CartRepository abstracts persistence so the service can be exercised with
// a stub in tests.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindBySalesRep(ctx context.Context, salesRepCode string) (*models.Cart, error)
	Create(ctx context.Context, record *models.Cart) (*models.Cart, error)
	Update(ctx context.Context, record *models.Cart) (*models.Cart, error)
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartLineItem) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLoader interface {
	GetQuotation(ctx context.Context, token string, docEntry int) (*sap.Order, error)
}
