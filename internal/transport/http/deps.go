package http

import (
	"github.com/kgbox/expiry-notifier/internal/application/job"
	"github.com/kgbox/expiry-notifier/internal/application/notify"
	"github.com/kgbox/expiry-notifier/internal/application/scan"
	"github.com/kgbox/expiry-notifier/internal/infrastructure/dynamo"
	jwtinfra "github.com/kgbox/expiry-notifier/internal/infrastructure/jwt"
)

// Deps holds the built dependencies the router wires into handlers. The scan
// service and job are constructed in main because the scheduler shares them.
type Deps struct {
	ScanService      scan.Service
	Sender           notify.Sender
	Job              *job.Job
	TokenRepo        *dynamo.TokenRepo
	NotificationRepo *dynamo.NotificationRepo
	JWTProvider      *jwtinfra.Provider
}
