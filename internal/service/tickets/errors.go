package tickets

import "errors"

var ErrIncidentNotFound = errors.New("incident not found")
