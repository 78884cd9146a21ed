package store

import (
	"encoding/json"
	"fmt"
)

// encoded holds the JSON columns shared by the SQL backends.
type encoded struct {
	params   []byte
	summary  []byte
	result   []byte
	backtest []byte
}

func encode(rec *RunRecord) (encoded, error) {
	var e encoded
	var err error
	if e.params, err = json.Marshal(rec.Params); err != nil {
		return e, fmt.Errorf("marshal params: %w", err)
	}
	if e.summary, err = json.Marshal(rec.Summary); err != nil {
		return e, fmt.Errorf("marshal summary: %w", err)
	}
	if e.result, err = json.Marshal(rec.Result); err != nil {
		return e, fmt.Errorf("marshal result: %w", err)
	}
	if e.backtest, err = json.Marshal(rec.Backtest); err != nil {
		return e, fmt.Errorf("marshal backtest: %w", err)
	}
	return e, nil
}

// decode fills rec from JSON columns. result and backtest may be nil or
// the literal null.
func decode(rec *RunRecord, params, summary, result, backtest []byte) error {
	if err := json.Unmarshal(params, &rec.Params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal(summary, &rec.Summary); err != nil {
		return fmt.Errorf("unmarshal summary: %w", err)
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if len(backtest) > 0 {
		if err := json.Unmarshal(backtest, &rec.Backtest); err != nil {
			return fmt.Errorf("unmarshal backtest: %w", err)
		}
	}
	return nil
}
