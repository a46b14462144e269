package domain

type RemoteFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RemoteFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ViewLink string `json:"view_link,omitempty"`
}
