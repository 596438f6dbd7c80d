package observability

import (
	"context"
	"strings"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/prometheus"
)

// nilJobClient hands out nil command builders; the handlers under test never Send.
type nilJobClient struct{}

func (nilJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (nilJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (nilJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

func statusCounts(t *testing.T, reg *promclient.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	// The exporter keeps the instrument's dots: "jobs.processed_total".
	counts := map[string]float64{}
	found := false
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "jobs.processed") {
			continue
		}
		found = true
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "status" {
					counts[label.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	require.True(t, found, "jobs.processed family not exported")
	return counts
}

func TestInstrument_RecordsSettlement(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := New("test", prometheus.WithRegisterer(reg))
	defer obs.Shutdown()

	complete := obs.Instrument("evaluate-loan-policy", func(client worker.JobClient, job entities.Job) {
		client.NewCompleteJobCommand()
	})
	throw := obs.Instrument("evaluate-loan-policy", func(client worker.JobClient, job entities.Job) {
		client.NewThrowErrorCommand()
	})
	fail := obs.Instrument("record-loan-decision", func(client worker.JobClient, job entities.Job) {
		client.NewFailJobCommand()
	})
	idle := obs.Instrument("record-loan-decision", func(worker.JobClient, entities.Job) {})

	complete(nilJobClient{}, entities.Job{})
	complete(nilJobClient{}, entities.Job{})
	throw(nilJobClient{}, entities.Job{})
	fail(nilJobClient{}, entities.Job{})
	idle(nilJobClient{}, entities.Job{})

	counts := statusCounts(t, reg)
	assert.Equal(t, 2.0, counts[StatusCompleted])
	assert.Equal(t, 1.0, counts[StatusError])
	assert.Equal(t, 1.0, counts[StatusFailed])
	assert.Equal(t, 1.0, counts[StatusUnsettled])
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	obs := &Observability{}
	obs.RecordJobProcessed(context.Background(), "x", StatusCompleted)
	obs.Instrument("x", func(worker.JobClient, entities.Job) {})(nilJobClient{}, entities.Job{})
	obs.Shutdown()
}
