package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "candlux/internal/errors"
	"candlux/internal/mailer"
)

func TestMailService_SendTest(t *testing.T) {
	tests := []struct {
		name    string
		to      string
		wantTo  string
		sendErr error
	}{
		{"explicit recipient", "ops@x.com", "ops@x.com", nil},
		{"default recipient", "", "shop@candlux.local", nil},
		{"relay failure", "ops@x.com", "ops@x.com", errors.New("down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(MockSender)
			sender.On("Send", mock.Anything, mock.MatchedBy(func(m mailer.Message) bool { return m.To == tt.wantTo })).
				Return(tt.sendErr)
			svc := NewMailService(sender, "shop@candlux.local", zap.NewNop())

			to, err := svc.SendTest(context.Background(), tt.to)
			assert.Equal(t, tt.wantTo, to)
			if tt.sendErr != nil {
				var de *apperrors.DeliveryError
				require.ErrorAs(t, err, &de)
			} else {
				assert.NoError(t, err)
			}
			sender.AssertExpectations(t)
		})
	}
}
