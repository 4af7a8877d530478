package response

// Business codes carried in the response envelope. Zero is success;
// non-zero groups follow the error taxonomy.
const (
	CodeOK = 0

	CodeBadRequest     = 40000 // validation failures
	CodeNotFound       = 40400 // resource lookups that missed
	CodeStateConflict  = 40900 // operation illegal from current status
	CodeGatewayFailure = 50200 // processor call went wrong
	CodeInternal       = 50000 // everything else, incl. data inconsistency
)
