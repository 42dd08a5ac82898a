package eventlog

import "time"

// AlertWindow is one continuous alert period within a session.
type AlertWindow struct {
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"` // nil while the alert is still open
	MaxFaceCount int        `json:"max_face_count"`
}

// Summary is the exported per-session report.
type Summary struct {
	SessionID        string        `json:"session_id"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          *time.Time    `json:"end_time,omitempty"`
	TotalFrames      uint64        `json:"total_frames"`
	Alerts           []AlertWindow `json:"alerts"`
	RollingFPS       float64       `json:"rolling_fps"`
	RollingLatencyMS float64       `json:"rolling_latency_ms"`
}

// observe folds one event into the summary. Caller holds the logger
// mutex.
func (s *Summary) observe(ev Event) {
	at := time.UnixMilli(ev.Ts)

	switch ev.Kind {
	case KindSessionStart:
		s.StartTime = at
	case KindSessionEnd:
		s.EndTime = &at
		// A session ending mid-alert closes the open window.
		s.closeOpenWindow(at)
	case KindAlertRaised:
		s.Alerts = append(s.Alerts, AlertWindow{
			StartTime:    at,
			MaxFaceCount: payloadFaceCount(ev.Payload),
		})
	case KindAlertCleared:
		s.closeOpenWindow(at)
	case KindDetection:
		if n := len(s.Alerts); n > 0 && s.Alerts[n-1].EndTime == nil {
			if fc := payloadFaceCount(ev.Payload); fc > s.Alerts[n-1].MaxFaceCount {
				s.Alerts[n-1].MaxFaceCount = fc
			}
		}
	}
}

func (s *Summary) closeOpenWindow(at time.Time) {
	if n := len(s.Alerts); n > 0 && s.Alerts[n-1].EndTime == nil {
		s.Alerts[n-1].EndTime = &at
	}
}

func payloadFaceCount(payload map[string]any) int {
	switch v := payload["face_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
