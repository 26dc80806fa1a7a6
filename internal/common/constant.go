package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MaxSyncAttempts is the number of failed pushes after which a queue item
// is parked as failed and handed to the SMS fallback.
const MaxSyncAttempts = 5
