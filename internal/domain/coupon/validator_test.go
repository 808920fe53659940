package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule *Rule
	err  error
	code string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.code = code
	return m.rule, m.err
}

func (m *mockCouponRepo) Create(context.Context, *Rule) error      { return nil }
func (m *mockCouponRepo) Deactivate(context.Context, string) error { return nil }
func (m *mockCouponRepo) List(context.Context) ([]Rule, error)     { return nil, nil }

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockCouponRepo
		code       string
		subtotal   decimal.Decimal
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name: "percent discount under cap",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:             "SAVE10",
					DiscountPercent:  decimal.NewFromInt(10),
					MaxDiscountValue: decimal.NewFromInt(500),
					ExpiresAt:        futureTime,
					Active:           true,
				},
			},
			code:       "SAVE10",
			subtotal:   decimal.NewFromInt(1000),
			wantAmount: decimal.NewFromInt(100),
		},
		{
			name: "discount capped at max discount value",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:             "BIG20",
					DiscountPercent:  decimal.NewFromInt(20),
					MinOrderValue:    decimal.NewFromInt(2000),
					MaxDiscountValue: decimal.NewFromInt(500),
					ExpiresAt:        futureTime,
					Active:           true,
				},
			},
			code:       "BIG20",
			subtotal:   decimal.NewFromInt(3000),
			wantAmount: decimal.NewFromInt(500), // 20% would be 600
		},
		{
			name:     "unknown code",
			repo:     &mockCouponRepo{err: ErrNotFound},
			code:     "BOGUS",
			subtotal: decimal.NewFromInt(1000),
			wantErr:  ErrNotFound,
		},
		{
			name: "inactive coupon",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:            "OFF",
					DiscountPercent: decimal.NewFromInt(10),
					ExpiresAt:       futureTime,
					Active:          false,
				},
			},
			code:     "OFF",
			subtotal: decimal.NewFromInt(1000),
			wantErr:  ErrInactive,
		},
		{
			name: "expired regardless of subtotal",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:            "EXPIRED10",
					DiscountPercent: decimal.NewFromInt(10),
					ExpiresAt:       pastTime,
					Active:          true,
				},
			},
			code:     "EXPIRED10",
			subtotal: decimal.NewFromInt(999999),
			wantErr:  ErrExpired,
		},
		{
			name: "subtotal below minimum order value",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:            "MIN2K",
					DiscountPercent: decimal.NewFromInt(15),
					MinOrderValue:   decimal.NewFromInt(2000),
					ExpiresAt:       futureTime,
					Active:          true,
				},
			},
			code:     "MIN2K",
			subtotal: decimal.NewFromInt(1999),
			wantErr:  ErrBelowMinimum,
		},
		{
			name: "subtotal exactly at minimum succeeds",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:             "MIN2K",
					DiscountPercent:  decimal.NewFromInt(15),
					MinOrderValue:    decimal.NewFromInt(2000),
					MaxDiscountValue: decimal.NewFromInt(1000),
					ExpiresAt:        futureTime,
					Active:           true,
				},
			},
			code:       "MIN2K",
			subtotal:   decimal.NewFromInt(2000),
			wantAmount: decimal.NewFromInt(300),
		},
		{
			name: "zero max discount means uncapped",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:            "NOCAP",
					DiscountPercent: decimal.NewFromInt(50),
					ExpiresAt:       futureTime,
					Active:          true,
				},
			},
			code:       "NOCAP",
			subtotal:   decimal.NewFromInt(800),
			wantAmount: decimal.NewFromInt(400),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, tt.subtotal)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

func TestRepoValidator_NormalizesCode(t *testing.T) {
	repo := &mockCouponRepo{err: ErrNotFound}
	v := NewRepoValidator(repo)

	_, err := v.Validate(context.Background(), "  save10 ", decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "SAVE10", repo.code)
}

func TestRepoValidator_Idempotent(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:             "SAVE10",
			DiscountPercent:  decimal.NewFromInt(10),
			MaxDiscountValue: decimal.NewFromInt(500),
			ExpiresAt:        time.Now().Add(time.Hour),
			Active:           true,
		},
	}
	v := NewRepoValidator(repo)
	subtotal := decimal.NewFromInt(1234)

	first, err := v.Validate(context.Background(), "SAVE10", subtotal)
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), "SAVE10", subtotal)
	require.NoError(t, err)

	assert.True(t, first.Amount.Equal(second.Amount))
}

func TestApply_Bounds(t *testing.T) {
	rule := &Rule{
		Code:             "ANY",
		DiscountPercent:  decimal.NewFromInt(90),
		MaxDiscountValue: decimal.NewFromInt(10000),
	}

	// Discount never exceeds the subtotal itself.
	d := Apply(rule, decimal.NewFromInt(50))
	assert.True(t, d.Amount.LessThanOrEqual(decimal.NewFromInt(50)))

	// Discount never exceeds the cap.
	d = Apply(rule, decimal.NewFromInt(1000000))
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(10000)))

	// Never negative.
	d = Apply(rule, decimal.Zero)
	assert.True(t, d.Amount.Equal(decimal.Zero))
}
