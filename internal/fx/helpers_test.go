package fx_test

import "encoding/json"

// fillRates writes {"rates": rates} into out through JSON so the stub does
// not depend on the converter's unexported response type.
func fillRates(out any, rates map[string]float64) error {
	data, err := json.Marshal(map[string]any{"rates": rates})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
