package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosting_Budget(t *testing.T) {
	amount := 600.0
	half := 12.5
	usd := "USD"

	tests := []struct {
		name    string
		posting Posting
		want    string
	}{
		{name: "unknown"},
		{
			name:    "amount without currency",
			posting: Posting{BudgetAmount: &amount},
		},
		{
			name:    "whole amount",
			posting: Posting{BudgetAmount: &amount, BudgetCurrency: &usd},
			want:    "600 USD",
		},
		{
			name:    "fraction",
			posting: Posting{BudgetAmount: &half, BudgetCurrency: &usd},
			want:    "12.5 USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.posting.Budget())
			assert.Equal(t, tt.want != "", tt.posting.HasBudget())
		})
	}
}

func TestPostings(t *testing.T) {
	postings := Postings{
		{ID: 1, Link: "https://example.org/1"},
		{ID: 2, Link: "https://example.org/2"},
	}
	assert.Equal(t, []int64{1, 2}, postings.IDs())
	assert.Equal(t,
		[]string{"https://example.org/1", "https://example.org/2"},
		postings.Links())
}
