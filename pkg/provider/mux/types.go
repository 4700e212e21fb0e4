package mux

type createAssetRequest struct {
	Input          []inputSettings `json:"input"`
	PlaybackPolicy []string        `json:"playback_policy"`
	Test           bool            `json:"test,omitempty"`
}

type inputSettings struct {
	URL     string   `json:"url"`
	Overlay *overlay `json:"overlay,omitempty"`
}

type overlay struct {
	Text []textOverlay `json:"text"`
}

type textOverlay struct {
	Text        string `json:"text"`
	X           string `json:"x"`
	Y           string `json:"y"`
	FontFamily  string `json:"font_family"`
	FontSize    string `json:"font_size"`
	Color       string `json:"color"`
	StrokeColor string `json:"stroke_color"`
	StrokeWidth string `json:"stroke_width"`
}

type assetEnvelope struct {
	Data assetData `json:"data"`
}

type assetData struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	PlaybackIDs []playbackID `json:"playback_ids"`
	Errors      *assetErrors `json:"errors,omitempty"`
}

type playbackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

type assetErrors struct {
	Type     string   `json:"type"`
	Messages []string `json:"messages"`
}
