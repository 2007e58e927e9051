// Package settings edits the singleton store settings document.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

// StoreInfo is the general settings form.
type StoreInfo struct {
	StoreName    string             `json:"storeName" validate:"required,max=80"`
	StoreEmail   string             `json:"storeEmail" validate:"omitempty,email"`
	StorePhone   string             `json:"storePhone" validate:"omitempty,ngphone"`
	StoreAddress string             `json:"storeAddress" validate:"max=200"`
	Social       models.SocialLinks `json:"social"`
}

// Shipping is the delivery settings form.
type Shipping struct {
	DeliveryFee           decimal.Decimal `json:"deliveryFee"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	DeliveryTime          string          `json:"deliveryTime" validate:"max=60"`
	DeliveryZones         []string        `json:"deliveryZones"`
}

func (s Shipping) validate() error {
	errs := validate.Errors{}
	if err := validate.Struct(s); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	if s.DeliveryFee.IsNegative() {
		errs["deliveryFee"] = "Delivery fee cannot be negative"
	}
	if !s.FreeShippingThreshold.IsPositive() {
		errs["freeShippingThreshold"] = "Free shipping threshold must be greater than zero"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type Service struct {
	repos *repository.Repos
}

func NewService(repos *repository.Repos) *Service {
	return &Service{repos: repos}
}

// Load returns the saved settings, or the defaults if none were saved.
func (s *Service) Load(ctx context.Context) (models.StoreSettings, error) {
	return s.repos.Settings.Load(ctx)
}

// SaveStoreInfo merges the general section into the settings document.
func (s *Service) SaveStoreInfo(ctx context.Context, in StoreInfo) (models.StoreSettings, error) {
	if err := validate.Struct(in); err != nil {
		return models.StoreSettings{}, err
	}
	err := s.repos.Settings.Merge(ctx, docstore.Fields{
		"storeName":    strings.TrimSpace(in.StoreName),
		"storeEmail":   strings.ToLower(strings.TrimSpace(in.StoreEmail)),
		"storePhone":   strings.TrimSpace(in.StorePhone),
		"storeAddress": strings.TrimSpace(in.StoreAddress),
		"social":       in.Social,
		"updatedAt":    docstore.ServerTimestamp,
	})
	if err != nil {
		return models.StoreSettings{}, fmt.Errorf("save store info: %w", err)
	}
	slog.Info("Store info saved", "store_name", in.StoreName)
	return s.Load(ctx)
}

// SaveShipping merges the shipping section into the settings document.
func (s *Service) SaveShipping(ctx context.Context, in Shipping) (models.StoreSettings, error) {
	if err := in.validate(); err != nil {
		return models.StoreSettings{}, err
	}
	zones := make([]string, 0, len(in.DeliveryZones))
	for _, z := range in.DeliveryZones {
		if z = strings.TrimSpace(z); z != "" {
			zones = append(zones, z)
		}
	}
	err := s.repos.Settings.Merge(ctx, docstore.Fields{
		"deliveryFee":           in.DeliveryFee,
		"freeShippingThreshold": in.FreeShippingThreshold,
		"deliveryTime":          strings.TrimSpace(in.DeliveryTime),
		"deliveryZones":         zones,
		"updatedAt":             docstore.ServerTimestamp,
	})
	if err != nil {
		return models.StoreSettings{}, fmt.Errorf("save shipping settings: %w", err)
	}
	slog.Info("Shipping settings saved", "delivery_fee", in.DeliveryFee.String(), "free_threshold", in.FreeShippingThreshold.String())
	return s.Load(ctx)
}
