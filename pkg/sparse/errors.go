package sparse

import "errors"

// ErrIndexUnavailable is returned when a query arrives before any index has
// been built. This is fatal to the query and distinct from an empty result
// set, which is a legitimate outcome; recovery requires a rebuild.
var ErrIndexUnavailable = errors.New("sparse index not built")
