package calendar

import (
	"testing"
	"vet-clinic/internal/apierrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		request   CompletionRequest
		wantField string
	}{
		{
			name:    "should accept a paid appointment",
			request: CompletionRequest{Amount: amount(25000), PaymentMethod: PaymentDebit},
		},
		{
			name:    "should accept a free appointment",
			request: CompletionRequest{Amount: amount(0), PaymentMethod: PaymentCash},
		},
		{
			name:      "should reject a negative amount",
			request:   CompletionRequest{Amount: amount(-1), PaymentMethod: PaymentCash},
			wantField: "amount",
		},
		{
			name:      "should require the amount",
			request:   CompletionRequest{PaymentMethod: PaymentCash},
			wantField: "amount",
		},
		{
			name:      "should require the payment method",
			request:   CompletionRequest{Amount: amount(100)},
			wantField: "payment_method",
		},
		{
			name:      "should reject an unknown payment method",
			request:   CompletionRequest{Amount: amount(100), PaymentMethod: PaymentMethod("BARTER")},
			wantField: "payment_method",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.request.Validate()

			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr *apierrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}
