package config

// Portal endpoints. These are fixed and not user-configurable.
const (
	FirstFactorURL = "https://auth.colonq.computer/api/firstfactor"
	TargetURL      = "https://secure.colonq.computer/menu"
	RedeemURL      = "https://secure.colonq.computer/api/redeem"
	CookieURL      = "https://secure.colonq.computer"
)

// Endpoints groups the URLs the login and redeem flows talk to
type Endpoints struct {
	// FirstFactor receives the JSON credential POST
	FirstFactor string
	// Target is sent as target_url in the login body
	Target string
	// Redeem receives the multipart redemption POST
	Redeem string
	// Cookie is the URL the stored cookie string is scoped to on replay
	Cookie string
}

// DefaultEndpoints returns the production portal endpoints
func DefaultEndpoints() Endpoints {
	return Endpoints{
		FirstFactor: FirstFactorURL,
		Target:      TargetURL,
		Redeem:      RedeemURL,
		Cookie:      CookieURL,
	}
}
