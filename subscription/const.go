package subscription

// Status is the derived lifecycle stage of a subscription
type Status string

// Define the valid statuses of a subscription.
// Active -> Warning -> Critical -> Expired by elapsing time only.
// Expired -> Active via auto-renewal or explicit resurrection.
// Warning/Critical are never assigned directly by a user action.
const (
	StatusActive   Status = "active"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusExpired  Status = "expired"
)

// Frequency is the billing cadence of a subscription
type Frequency string

// Defining valid billing frequencies
const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// FuneralType selects the ceremony variant shown when a non-renewing
// subscription expires
type FuneralType string

// Defining valid ceremony variants
const (
	FuneralStandard  FuneralType = "standard"
	FuneralViking    FuneralType = "viking"
	FuneralPixelated FuneralType = "pixelated"
	FuneralSpace     FuneralType = "space"
)

const (
	warningThresholdDays  = 7
	criticalThresholdDays = 3
	resurrectionGraceDays = 30
)
