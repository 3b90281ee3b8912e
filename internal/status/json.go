package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Tared         bool         `json:"tared"`
	Offset        int32        `json:"offset"`
	Last          int32        `json:"last"`
	Stable        int32        `json:"stable"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of reading and edge counts.
type CountsJSON struct {
	Readings     int `json:"readings"`
	Changes      int `json:"changes"`
	Edges        int `json:"edges"`
	EdgeReads    int `json:"edge_reads"`
	EdgesIgnored int `json:"edges_ignored"`
	ReadErrors   int `json:"read_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ReportMs    int64  `json:"report_ms"`
	SettleMs    int64  `json:"settle_ms"`
	Threshold   int32  `json:"threshold"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Gain        int    `json:"gain"`
	PinClock    int    `json:"pin_clock"`
	PinData     int    `json:"pin_data"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Tared:         snap.Tared,
		Offset:        snap.Offset,
		Last:          snap.Last,
		Stable:        snap.Stable,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Readings:     snap.Counts.Readings,
			Changes:      snap.Counts.Changes,
			Edges:        snap.Edges.Edges,
			EdgeReads:    snap.Edges.Reads,
			EdgesIgnored: snap.Edges.Ignored,
			ReadErrors:   snap.Edges.Errors,
		},
		Config: ConfigJSON{
			ReportMs:    snap.Config.ReportMs,
			SettleMs:    snap.Config.SettleMs,
			Threshold:   snap.Config.Threshold,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Gain:        snap.Config.Gain,
			PinClock:    snap.Config.PinClock,
			PinData:     snap.Config.PinData,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
