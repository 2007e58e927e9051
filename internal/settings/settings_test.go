package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

func newService(t *testing.T) *Service {
	t.Helper()
	clock := time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC)
	mem, err := docstore.NewMemory(docstore.WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mem.Close() })
	return NewService(repository.New(mem))
}

func TestDefaultsBeforeFirstSave(t *testing.T) {
	s, err := newService(t).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.StoreName != "Auranova Afrique" || !s.DeliveryFee.Equal(decimal.NewFromInt(2500)) || !s.FreeShippingThreshold.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("defaults = %+v", s)
	}
}

func TestSectionsMergeIndependently(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.SaveShipping(ctx, Shipping{
		DeliveryFee:           decimal.NewFromInt(3000),
		FreeShippingThreshold: decimal.NewFromInt(75000),
		DeliveryTime:          "2-4 days",
		DeliveryZones:         []string{"Lagos", " ", "Abuja"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.SaveStoreInfo(ctx, StoreInfo{
		StoreName:  "Auranova",
		StoreEmail: "Hello@Auranova.ng",
		Social:     models.SocialLinks{Instagram: "auranova"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got.StoreName != "Auranova" || got.StoreEmail != "hello@auranova.ng" || got.Social.Instagram != "auranova" {
		t.Errorf("store info = %+v", got)
	}
	// The shipping section survives the store info save.
	if !got.DeliveryFee.Equal(decimal.NewFromInt(3000)) || !got.FreeShippingThreshold.Equal(decimal.NewFromInt(75000)) {
		t.Errorf("shipping lost: %s / %s", got.DeliveryFee, got.FreeShippingThreshold)
	}
	if len(got.DeliveryZones) != 2 || got.DeliveryTime != "2-4 days" {
		t.Errorf("zones = %v, time = %q", got.DeliveryZones, got.DeliveryTime)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updatedAt not stamped")
	}
}

func TestValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.SaveStoreInfo(ctx, StoreInfo{StoreEmail: "not-an-email"})
	var verrs validate.Errors
	if !errors.As(err, &verrs) || verrs["storeName"] == "" || verrs["storeEmail"] == "" {
		t.Errorf("store info err = %v", err)
	}

	_, err = svc.SaveShipping(ctx, Shipping{DeliveryFee: decimal.NewFromInt(-1)})
	verrs = nil
	if !errors.As(err, &verrs) || verrs["deliveryFee"] == "" || verrs["freeShippingThreshold"] == "" {
		t.Errorf("shipping err = %v", err)
	}

	s, _ := svc.Load(ctx)
	if s.StoreName != "Auranova Afrique" {
		t.Errorf("invalid saves changed settings: %+v", s)
	}
}
