package link

import (
	"strings"
	"testing"
	"time"

	"github.com/itohio/streamgauge/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 15, 0, 0, time.Local)

	tests := []struct {
		name    string
		line    string
		want    record.Observation
		wantErr bool
	}{
		{
			name: "full record",
			line: `{"at":"2024-05-01T12:15:00","sg":512,"bp1":1013.2500,"bt1":22.50,"bh1":45.00,"bv":3.70,"hth":0}`,
			want: record.Observation{
				At:       at,
				Distance: 512,
				Fields: []record.Field{
					record.Pressure("bp1", 1013.25),
					record.Value("bt1", 22.5),
					record.Value("bh1", 45),
				},
				Battery: 3.7,
			},
		},
		{
			name: "sentinels",
			line: `{"at":"2024-05-01T12:15:00","sg":-999,"mt1":-999.90,"dt1":-0.50,"bv":-999.90,"hth":8321}` + "\r\n",
			want: record.Observation{
				At:       at,
				Distance: -999,
				Fields: []record.Field{
					record.Value("mt1", -999.9),
					record.Value("dt1", -0.5),
				},
				Battery: -999.9,
				Status:  8321,
			},
		},
		{
			name: "no sensor fields",
			line: `{"at":"2024-05-01T12:15:00","sg":0,"bv":0.00,"hth":1}`,
			want: record.Observation{At: at, Battery: 0, Status: 1},
		},
		{name: "missing status", line: `{"at":"2024-05-01T12:15:00","sg":0,"bv":0.00}`, wantErr: true},
		{name: "bad time", line: `{"at":"2024-05-01 12:15","sg":0,"bv":0.00,"hth":0}`, wantErr: true},
		{name: "fractional distance", line: `{"at":"2024-05-01T12:15:00","sg":1.5,"bv":0.00,"hth":0}`, wantErr: true},
		{name: "string field", line: `{"at":"2024-05-01T12:15:00","sg":1,"bt1":"x","bv":0.00,"hth":0}`, wantErr: true},
		{name: "truncated", line: `{"at":"2024-05-01T12:15:00","sg":1,"bv"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrNotRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRecord_NotRecord(t *testing.T) {
	for _, line := range []string{
		"",
		"Set Clock Enter YYYY:MM:DD:HH:MM:SS",
		"SG:512 3.70 0001",
		"BMX:NF",
	} {
		_, err := ParseRecord(line)
		assert.ErrorIs(t, err, ErrNotRecord, line)
	}
}

func TestParseRecord_RoundTrip(t *testing.T) {
	obs := record.Observation{
		At:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local),
		Distance: 1230,
		Fields: []record.Field{
			record.Pressure("bp1", 1001.5),
			record.Value("bt1", -3.25),
			record.Value("bh1", 80),
			record.Pressure("bp2", 999.75),
			record.Value("mt1", 4),
			record.Value("dt1", 5.5),
		},
		Battery: 3.5,
		Status:  0x2000,
	}

	got, err := ParseRecord(obs.String())
	require.NoError(t, err)
	assert.Equal(t, obs.String(), got.String())
}

func TestSerial_Read(t *testing.T) {
	d := New("test", 0, 4, zap.NewNop().Sugar())
	input := strings.Join([]string{
		"boot",
		`{"at":"2024-05-01T12:15:00","sg":512,"bv":3.70,"hth":0}`,
		`{"at":"garbage"}`,
		"",
		`{"at":"2024-05-01T12:30:00","sg":520,"bv":3.70,"hth":0}`,
	}, "\n")

	d.read(strings.NewReader(input))

	require.Len(t, d.records, 2)
	first := <-d.records
	second := <-d.records
	assert.Equal(t, 512, first.Distance)
	assert.Equal(t, 520, second.Distance)
}

func TestSerial_NotConnected(t *testing.T) {
	d := New("test", 0, 0, nil)
	assert.False(t, d.IsConnected())
	assert.Error(t, d.SetTime(time.Now()))
	assert.NoError(t, d.Close())
	assert.Equal(t, DefaultBaudRate, d.baudRate)
	assert.Equal(t, DefaultBufferSize, d.bufSize)
}
