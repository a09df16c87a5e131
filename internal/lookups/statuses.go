package lookups

// Helpdesk status codes are numeric on the wire; only a handful carry an
// agreed label. Codes outside the map render as Unknown so new statuses
// added upstream never break a report.
var statusLabels = map[int]string{
	2:  "Open",
	3:  "Pending",
	4:  "Resolved",
	5:  "Closed",
	6:  "Waiting on Customer",
	8:  "Awaiting Deploy",
	9:  "Change for Tech Review",
	12: "Deferred",
	13: "Peer Review",
}

// StatusLabel returns the display label for a helpdesk status code.
func StatusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return "Unknown"
}
