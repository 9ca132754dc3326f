package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panchayat-connect/internal/models"
)

func TestDecode(t *testing.T) {
	event, err := Decode([]byte(`{
		"type": "report.assigned",
		"report_id": "0b6d7a52-8f1e-4c1a-9d55-2b9c0f3c1a01",
		"tracking_id": "TRK482913",
		"status": "assigned",
		"team_id": 2,
		"category": "waterLeak",
		"urgency": "urgent",
		"occurred_at": "2025-10-01T09:00:00Z"
	}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventReportAssigned, event.Type)
	assert.Equal(t, models.StatusAssigned, event.Status)
	require.NotNil(t, event.TeamID)
	assert.Equal(t, int64(2), *event.TeamID)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"tracking_id": "TRK482913"}`))
	require.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{Logger: zap.NewNop()}
	require.NoError(t, p.Publish(context.Background(), models.ReportEvent{Type: models.EventReportSubmitted}))
	p.Close()
}
