package model

// Resource is a managed unit (a server instance) discovered under an account.
// ID is sensitive and is shown masked in every user-visible message.
type Resource struct {
	ID      string
	Name    string
	Address string
}

// DisplayName returns Name, falling back to ID when the console gave no name.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
