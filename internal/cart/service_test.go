package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hondusoft/fieldsales-backend/internal/pricing"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	"github.com/hondusoft/fieldsales-backend/pkg/db/models"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

const testRep = "SR-042"

func TestAddLineItemReplacesDuplicate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 3)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	view, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 7))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(view.Lines) != 1 {
		t.Fatalf("expected single line, got %d", len(view.Lines))
	}
	if view.Lines[0].Quantity != 7 {
		t.Fatalf("expected replaced quantity 7, got %d", view.Lines[0].Quantity)
	}
	if !view.OrderTotal.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected total 700, got %s", view.OrderTotal)
	}
}

func TestAddLineItemRejectDuplicate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 3)); err != nil {
		t.Fatalf("first add: %v", err)
	}

	input := itemInput("A001", 100, 7)
	input.Merge = MergeReject
	_, err := svc.AddLineItem(ctx, testRep, input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	view, err := svc.Snapshot(ctx, testRep)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 3 {
		t.Fatalf("rejected add must not change the cart: %+v", view.Lines)
	}
}

func TestAddQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	view, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 0))
	if err != nil {
		t.Fatalf("zero-quantity add: %v", err)
	}
	if !view.Empty() {
		t.Fatalf("expected zero-quantity add to remove the line, got %+v", view.Lines)
	}

	// For an item not in the cart it is a no-op, not an error.
	view, err = svc.AddLineItem(ctx, testRep, itemInput("ZZZZ", 100, -1))
	if err != nil {
		t.Fatalf("negative-quantity add: %v", err)
	}
	if !view.Empty() {
		t.Fatalf("expected no-op for unknown item, got %+v", view.Lines)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add A001: %v", err)
	}
	if _, err := svc.AddLineItem(ctx, testRep, itemInput("B002", 50, 1)); err != nil {
		t.Fatalf("add B002: %v", err)
	}

	zero := 0
	view, err := svc.UpdateLineItem(ctx, testRep, "A001", UpdateItemInput{Quantity: &zero})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if view.ItemCount != 1 {
		t.Fatalf("expected 1 item left, got %d", view.ItemCount)
	}
	if view.Lines[0].ItemCode != "B002" {
		t.Fatalf("expected B002 to remain, got %s", view.Lines[0].ItemCode)
	}
	if !view.OrderTotal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", view.OrderTotal)
	}
}

func TestUpdateUnknownItemIsNoOp(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	five := 5
	view, err := svc.UpdateLineItem(ctx, testRep, "ZZZZ", UpdateItemInput{Quantity: &five})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 2 {
		t.Fatalf("unknown item must not change the cart: %+v", view.Lines)
	}
}

func TestTotalsRecomputeAcrossTierThreshold(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("PLAIN", 100, 1)); err != nil {
		t.Fatalf("add PLAIN: %v", err)
	}

	tiered := itemInput("TIERED", 100, 12)
	tiered.Tiers = []pricing.Tier{{MinQuantity: 12, Price: decimal.NewFromInt(90)}}
	view, err := svc.AddLineItem(ctx, testRep, tiered)
	if err != nil {
		t.Fatalf("add TIERED: %v", err)
	}
	if !view.OrderTotal.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("expected total 1180 (100 + 90*12), got %s", view.OrderTotal)
	}

	five := 5
	view, err = svc.UpdateLineItem(ctx, testRep, "TIERED", UpdateItemInput{Quantity: &five})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !view.OrderTotal.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected total 600 after dropping below the tier, got %s", view.OrderTotal)
	}
}

func TestSnapshotFlagsExpiredActiveTier(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	past := time.Now().AddDate(0, -1, 0)
	input := itemInput("TIERED", 100, 12)
	input.Tiers = []pricing.Tier{{MinQuantity: 12, Price: decimal.NewFromInt(90), Expiry: &past}}

	view, err := svc.AddLineItem(ctx, testRep, input)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	line := view.Lines[0]
	if !line.EffectivePrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expired tier still prices, got %s", line.EffectivePrice)
	}
	if line.ActiveTierMinQty == nil || *line.ActiveTierMinQty != 12 {
		t.Fatalf("expected active tier 12, got %v", line.ActiveTierMinQty)
	}
	if !line.ActiveTierExpired {
		t.Fatal("expected the expired active tier to be flagged")
	}
}

func TestPriceOverrideFlooredAtListPrice(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	below := decimal.NewFromInt(80)
	input := itemInput("A001", 100, 1)
	input.UnitPrice = &below
	view, err := svc.AddLineItem(ctx, testRep, input)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !view.Lines[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected override clamped to 100, got %s", view.Lines[0].UnitPrice)
	}

	above := decimal.NewFromInt(120)
	view, err = svc.UpdateLineItem(ctx, testRep, "A001", UpdateItemInput{UnitPrice: &above})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !view.Lines[0].UnitPrice.Equal(above) {
		t.Fatalf("expected override 120 kept, got %s", view.Lines[0].UnitPrice)
	}
}

func TestEnterEditModeReplacesWholesale(t *testing.T) {
	t.Parallel()

	loader := &stubOrderLoader{order: &sap.Order{
		DocEntry: 900,
		CardCode: "C100",
		CardName: "Comercial Sula",
		Comments: "entrega viernes",
		Lines: []sap.OrderLine{
			{ItemCode: "X1", ItemDescription: "Item X1", Quantity: 4, PriceAfterVAT: decimal.NewFromInt(25), TaxCode: "IVA"},
			{ItemCode: "X2", ItemDescription: "Item X2", Quantity: 2, PriceAfterVAT: decimal.NewFromInt(40), TaxCode: "IVA"},
		},
	}}
	svc, _ := newTestServiceWithLoader(t, config.CartConfig{}, loader)
	ctx := context.Background()

	if _, err := svc.AddLineItem(ctx, testRep, itemInput("OLD", 10, 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	view, err := svc.EnterEditMode(ctx, testRep, "tok", 900)
	if err != nil {
		t.Fatalf("enter edit mode: %v", err)
	}

	if view.EditingDocEntry == nil || *view.EditingDocEntry != 900 {
		t.Fatalf("expected editing doc entry 900, got %v", view.EditingDocEntry)
	}
	if view.Comments != "entrega viernes" {
		t.Fatalf("expected comments seeded from order, got %q", view.Comments)
	}
	if len(view.Lines) != 2 || view.Lines[0].ItemCode != "X1" || view.Lines[1].ItemCode != "X2" {
		t.Fatalf("expected wholesale replacement with order lines, got %+v", view.Lines)
	}
	if view.Customer == nil || view.Customer.CardCode != "C100" {
		t.Fatalf("expected customer from order, got %+v", view.Customer)
	}

	// Re-entering while editing discards the previous edit state first.
	loader.order.DocEntry = 901
	loader.order.Lines = loader.order.Lines[:1]
	view, err = svc.EnterEditMode(ctx, testRep, "tok", 901)
	if err != nil {
		t.Fatalf("re-enter edit mode: %v", err)
	}
	if view.EditingDocEntry == nil || *view.EditingDocEntry != 901 {
		t.Fatalf("expected editing doc entry 901, got %v", view.EditingDocEntry)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected 1 line after re-enter, got %d", len(view.Lines))
	}
}

func TestEnterEditModeOrderNotFound(t *testing.T) {
	t.Parallel()

	loader := &stubOrderLoader{err: &sap.APIError{StatusCode: 404}}
	svc, _ := newTestServiceWithLoader(t, config.CartConfig{}, loader)

	_, err := svc.EnterEditMode(context.Background(), testRep, "tok", 999)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSetCustomerChangePolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := sap.Customer{CardCode: "C1", CardName: "Uno"}
	second := sap.Customer{CardCode: "C2", CardName: "Dos"}

	// Default: the cart survives a customer change.
	svc, _ := newTestService(t, config.CartConfig{})
	if _, err := svc.SetCustomer(ctx, testRep, first); err != nil {
		t.Fatalf("set customer: %v", err)
	}
	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	view, err := svc.SetCustomer(ctx, testRep, second)
	if err != nil {
		t.Fatalf("change customer: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected lines kept on customer change, got %d", len(view.Lines))
	}

	// With the policy enabled, changing customers clears the lines.
	svc, _ = newTestService(t, config.CartConfig{ClearOnCustomerChange: true})
	if _, err := svc.SetCustomer(ctx, testRep, first); err != nil {
		t.Fatalf("set customer: %v", err)
	}
	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	view, err = svc.SetCustomer(ctx, testRep, second)
	if err != nil {
		t.Fatalf("change customer: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected lines cleared on customer change, got %d", len(view.Lines))
	}

	// Re-selecting the same customer never clears.
	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	view, err = svc.SetCustomer(ctx, testRep, second)
	if err != nil {
		t.Fatalf("re-set customer: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected lines kept when customer unchanged, got %d", len(view.Lines))
	}
}

func TestClearCartDropsOnlyLineItems(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.SetCustomer(ctx, testRep, sap.Customer{CardCode: "C1"}); err != nil {
		t.Fatalf("set customer: %v", err)
	}
	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.SetComments(ctx, testRep, "urgente"); err != nil {
		t.Fatalf("comments: %v", err)
	}

	view, err := svc.ClearCart(ctx, testRep)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !view.Empty() || !view.OrderTotal.IsZero() {
		t.Fatalf("expected empty lines after clear, got %+v", view)
	}
	if view.Customer == nil || view.Customer.CardCode != "C1" {
		t.Fatalf("clearing lines must keep the selected customer, got %+v", view.Customer)
	}
	if view.Comments != "urgente" {
		t.Fatalf("clearing lines must keep the comments, got %q", view.Comments)
	}
}

func TestClearCartKeepsEditState(t *testing.T) {
	t.Parallel()

	loader := &stubOrderLoader{order: &sap.Order{
		DocEntry: 500,
		CardCode: "C100",
		Lines:    []sap.OrderLine{{ItemCode: "X1", Quantity: 1, PriceAfterVAT: decimal.NewFromInt(10)}},
	}}
	svc, _ := newTestServiceWithLoader(t, config.CartConfig{}, loader)
	ctx := context.Background()

	if _, err := svc.EnterEditMode(ctx, testRep, "tok", 500); err != nil {
		t.Fatalf("enter edit mode: %v", err)
	}

	view, err := svc.ClearCart(ctx, testRep)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if view.EditingDocEntry == nil || *view.EditingDocEntry != 500 {
		t.Fatalf("clearing lines must keep the edit state, got %v", view.EditingDocEntry)
	}
}

func TestCompleteSubmissionRecordsDocEntry(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})
	ctx := context.Background()

	if _, err := svc.SetCustomer(ctx, testRep, sap.Customer{CardCode: "C1"}); err != nil {
		t.Fatalf("set customer: %v", err)
	}
	if _, err := svc.AddLineItem(ctx, testRep, itemInput("A001", 100, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.CompleteSubmission(ctx, testRep, 1234); err != nil {
		t.Fatalf("complete: %v", err)
	}

	view, err := svc.Snapshot(ctx, testRep)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !view.Empty() || view.Customer != nil {
		t.Fatalf("expected cart reset after submission, got %+v", view)
	}
	if view.LastOrderDocEntry == nil || *view.LastOrderDocEntry != 1234 {
		t.Fatalf("expected last doc entry 1234, got %v", view.LastOrderDocEntry)
	}
}

func TestSnapshotMissingCartIsEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.CartConfig{})

	view, err := svc.Snapshot(context.Background(), "SR-NEW")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !view.Empty() || view.ItemCount != 0 || !view.OrderTotal.IsZero() {
		t.Fatalf("expected empty snapshot, got %+v", view)
	}
}

func itemInput(code string, price int64, qty int) AddItemInput {
	return AddItemInput{
		ItemCode:  code,
		ItemName:  "Item " + code,
		ListPrice: decimal.NewFromInt(price),
		Quantity:  qty,
	}
}

func newTestService(t *testing.T, policy config.CartConfig) (Service, *memoryRepo) {
	t.Helper()
	return newTestServiceWithLoader(t, policy, &stubOrderLoader{})
}

func newTestServiceWithLoader(t *testing.T, policy config.CartConfig, loader orderLoader) (Service, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{}
	svc, err := NewService(repo, stubTxRunner{}, loader, policy)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

// memoryRepo mimics the persistence contract: reads return copies, so
// in-memory mutations only stick after Update/ReplaceItems.
type memoryRepo struct {
	record *models.Cart
	items  []models.CartLineItem
}

func (r *memoryRepo) WithTx(tx *gorm.DB) CartRepository { return r }

func (r *memoryRepo) FindBySalesRep(ctx context.Context, salesRepCode string) (*models.Cart, error) {
	if r.record == nil || r.record.SalesRepCode != salesRepCode {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *r.record
	clone.LineItems = append([]models.CartLineItem(nil), r.items...)
	return &clone, nil
}

func (r *memoryRepo) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	clone := *record
	clone.LineItems = nil
	r.record = &clone
	return record, nil
}

func (r *memoryRepo) Update(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	clone := *record
	clone.LineItems = nil
	r.record = &clone
	return record, nil
}

func (r *memoryRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartLineItem) error {
	r.items = append([]models.CartLineItem(nil), items...)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrderLoader struct {
	order *sap.Order
	err   error
	calls int
}

func (s *stubOrderLoader) GetQuotation(ctx context.Context, token string, docEntry int) (*sap.Order, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}
