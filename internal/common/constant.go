package common

// ExpiryNotice is sent to a user after the reaper revoked an expired account.
const ExpiryNotice = "Your validity expired. All voices have been removed."

// DefaultCostPerVoice is the number of credits one synthesis consumes.
const DefaultCostPerVoice = 1
