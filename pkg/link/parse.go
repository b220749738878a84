package link

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/streamgauge/pkg/record"
)

// ErrNotRecord is returned for console lines that are not observation
// records, such as diagnostics or the station monitor.
var ErrNotRecord = errors.New("not a record line")

// ParseRecord parses one console record line. Field order is preserved.
// Format: {"at":"YYYY-MM-DDTHH:MM:SS","sg":N,<fields>,"bv":V,"hth":S}
func ParseRecord(line string) (record.Observation, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return record.Observation{}, ErrNotRecord
	}

	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return record.Observation{}, fmt.Errorf("invalid record: %w", err)
	}

	var obs record.Observation
	var seen struct{ at, sg, bv, hth bool }
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return record.Observation{}, fmt.Errorf("invalid record: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return record.Observation{}, fmt.Errorf("invalid key %v", tok)
		}
		val, err := dec.Token()
		if err != nil {
			return record.Observation{}, fmt.Errorf("invalid value of %s: %w", key, err)
		}

		switch key {
		case "at":
			s, ok := val.(string)
			if !ok {
				return record.Observation{}, fmt.Errorf("invalid timestamp %v", val)
			}
			if obs.At, err = time.ParseInLocation(record.TimeLayout, s, time.Local); err != nil {
				return record.Observation{}, fmt.Errorf("invalid timestamp: %w", err)
			}
			seen.at = true
		case "sg":
			n, err := number(key, val)
			if err != nil {
				return record.Observation{}, err
			}
			d, err := strconv.Atoi(n.String())
			if err != nil {
				return record.Observation{}, fmt.Errorf("invalid distance: %w", err)
			}
			obs.Distance = d
			seen.sg = true
		case "bv":
			v, err := float(key, val)
			if err != nil {
				return record.Observation{}, err
			}
			obs.Battery = v
			seen.bv = true
		case "hth":
			n, err := number(key, val)
			if err != nil {
				return record.Observation{}, err
			}
			s, err := strconv.ParseUint(n.String(), 10, 32)
			if err != nil {
				return record.Observation{}, fmt.Errorf("invalid status: %w", err)
			}
			obs.Status = uint32(s)
			seen.hth = true
		default:
			v, err := float(key, val)
			if err != nil {
				return record.Observation{}, err
			}
			if strings.HasPrefix(key, "bp") {
				obs.Fields = append(obs.Fields, record.Pressure(key, v))
			} else {
				obs.Fields = append(obs.Fields, record.Value(key, v))
			}
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return record.Observation{}, fmt.Errorf("invalid record: %w", err)
	}

	if !seen.at || !seen.sg || !seen.bv || !seen.hth {
		return record.Observation{}, fmt.Errorf("incomplete record")
	}
	return obs, nil
}

func number(key string, val json.Token) (json.Number, error) {
	n, ok := val.(json.Number)
	if !ok {
		return "", fmt.Errorf("invalid %s: %v", key, val)
	}
	return n, nil
}

func float(key string, val json.Token) (float32, error) {
	n, err := number(key, val)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(n.String(), 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return float32(f), nil
}
