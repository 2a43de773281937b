package models

// OTAManifest describes the firmware image scanners should run
type OTAManifest struct {
	Version     string `json:"version"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	UploadedAt  string `json:"uploaded_at"`
	DownloadURL string `json:"download_url,omitempty"`
}

// OTAUploadResponse is returned after a firmware upload
type OTAUploadResponse struct {
	OK          bool        `json:"ok"`
	Manifest    OTAManifest `json:"manifest"`
	DownloadURL string      `json:"download_url"`
}
