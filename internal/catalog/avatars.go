// Package catalog holds the static avatar and voice listings the demo
// frontend renders. The entries mirror the presenters and voices exposed by
// the upstream vendors.
package catalog

// Avatar describes one selectable D-ID presenter.
type Avatar struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Thumbnail   string `json:"thumbnail"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

var avatars = []Avatar{
	{
		ID:          "anna-neutral",
		Name:        "Anna",
		Thumbnail:   "https://cdn.d-id.com/avatars-web/celebrities/anna-in/thumbnail.png",
		Gender:      "female",
		Description: "Présentatrice professionnelle, style business",
	},
	{
		ID:          "luke-neutral",
		Name:        "Luke",
		Thumbnail:   "https://cdn.d-id.com/avatars-web/celebrities/luke-in/thumbnail.png",
		Gender:      "male",
		Description: "Présentateur professionnel, style business",
	},
	{
		ID:          "jeny-neutral",
		Name:        "Jeny",
		Thumbnail:   "https://cdn.d-id.com/avatars-web/celebrities/jeny-in/thumbnail.png",
		Gender:      "female",
		Description: "Présentatrice jeune et dynamique",
	},
	{
		ID:          "pete-neutral",
		Name:        "Pete",
		Thumbnail:   "https://cdn.d-id.com/avatars-web/celebrities/pete-in/thumbnail.png",
		Gender:      "male",
		Description: "Présentateur jeune et décontracté",
	},
	{
		ID:          "ava-neutral",
		Name:        "Ava",
		Thumbnail:   "https://cdn.d-id.com/avatars-web/celebrities/ava-in/thumbnail.png",
		Gender:      "female",
		Description: "Présentatrice au style naturel et chaleureux",
	},
	{
		ID:          "daniel-neutral",
		Name:        "Daniel",
		Thumbnail:   "https://cdn.d-id.com/avatars-web/celebrities/daniel-in/thumbnail.png",
		Gender:      "male",
		Description: "Présentateur au style professionnel et posé",
	},
}

// Avatars returns all selectable avatars.
func Avatars() []Avatar {
	return avatars
}

// AvatarByID looks an avatar up by its identifier.
func AvatarByID(id string) (Avatar, bool) {
	for _, a := range avatars {
		if a.ID == id {
			return a, true
		}
	}
	return Avatar{}, false
}
