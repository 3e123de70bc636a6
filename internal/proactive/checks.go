package proactive

import (
	"encoding/json"
)

// DefaultChecks returns the standard order/shipment proactive checks
// (spec §2's "pre-LLM order/shipment inspection"). Tool names match the
// tool catalogue named in spec §1 (order lookup, shipment tracking).
func DefaultChecks() []Check {
	return []Check{
		{
			ToolName:   "lookup_order_status",
			EntityType: "order_number",
			BuildArgs:  argsWithKey("order_number"),
			Summarize:  summarizeOrderStatus,
		},
		{
			ToolName:   "get_shipment_status",
			EntityType: "awb",
			BuildArgs:  argsWithKey("awb"),
			Summarize:  summarizeShipmentStatus,
		},
	}
}

func argsWithKey(key string) func(string) json.RawMessage {
	return func(value string) json.RawMessage {
		b, _ := json.Marshal(map[string]string{key: value})
		return b
	}
}

var notableOrderStatuses = map[string]bool{
	"delayed":   true,
	"cancelled": true,
	"returned":  true,
	"refunded":  true,
}

func summarizeOrderStatus(data json.RawMessage) (string, bool) {
	var payload struct {
		OrderNo string `json:"order_no"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", false
	}
	if !notableOrderStatuses[payload.Status] {
		return "", false
	}
	return "Order " + payload.OrderNo + " is " + payload.Status + ".", true
}

var notableShipmentStatuses = map[string]bool{
	"delayed":         true,
	"exception":       true,
	"out_for_delivery": true,
	"returned_to_origin": true,
}

func summarizeShipmentStatus(data json.RawMessage) (string, bool) {
	var payload struct {
		AWB    string `json:"awb"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", false
	}
	if !notableShipmentStatuses[payload.Status] {
		return "", false
	}
	return "Shipment " + payload.AWB + " is " + payload.Status + ".", true
}
