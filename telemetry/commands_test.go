package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []CollectorCommand
	}{
		{
			name: "nested command",
			body: `{"commandList":[{"command":{"commandType":"measurementIntervalChange","measurementInterval":60}}]}`,
			want: []CollectorCommand{{Type: CommandMeasurementIntervalChange, MeasurementInterval: time.Minute}},
		},
		{
			name: "flat command",
			body: `{"commandList":[{"commandType":"measurementIntervalChange","measurementInterval":15}]}`,
			want: []CollectorCommand{{Type: CommandMeasurementIntervalChange, MeasurementInterval: 15 * time.Second}},
		},
		{
			name: "other command kept",
			body: `{"commandList":[{"command":{"commandType":"throttlingSpecification"}}]}`,
			want: []CollectorCommand{{Type: "throttlingSpecification"}},
		},
		{
			name: "non-positive interval ignored",
			body: `{"commandList":[{"commandType":"measurementIntervalChange","measurementInterval":0}]}`,
		},
		{
			name: "missing type ignored",
			body: `{"commandList":[{"measurementInterval":10}]}`,
		},
		{name: "no command list", body: `{"ok":true}`},
		{name: "list not array", body: `{"commandList":{}}`},
		{name: "empty body", body: ``},
		{name: "not json", body: `accepted`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommands([]byte(tt.body)))
		})
	}
}
