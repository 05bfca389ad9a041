package catalog

// Voice describes one selectable ElevenLabs voice.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var voices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Description: "Voix féminine claire et naturelle"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Description: "Voix féminine joyeuse et énergique"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Description: "Voix féminine élégante et douce"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Description: "Voix masculine profonde et posée"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli", Description: "Voix féminine jeune et dynamique"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Description: "Voix masculine naturelle et professionnelle"},
	{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Description: "Voix masculine profonde et autoritaire"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Description: "Voix masculine calme et posée"},
}

// Voices returns all selectable voices.
func Voices() []Voice {
	return voices
}

// VoiceByID looks a voice up by its identifier.
func VoiceByID(id string) (Voice, bool) {
	for _, v := range voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}
