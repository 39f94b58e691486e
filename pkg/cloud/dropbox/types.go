package dropbox

// Wire types for the subset of the Dropbox v2 RPC API the driver uses.
// https://www.dropbox.com/developers/documentation/http/documentation

type pathRootArg struct {
	Tag         string `json:".tag"`
	NamespaceID string `json:"namespace_id,omitempty"`
}

type getMetadataArg struct {
	Path string `json:"path"`
}

type metadataResult struct {
	Tag         string `json:".tag"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	PathLower   string `json:"path_lower"`
}

type listFolderArg struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Limit     uint32 `json:"limit,omitempty"`
}

type listFolderContinueArg struct {
	Cursor string `json:"cursor"`
}

type listFolderResult struct {
	Entries []metadataResult `json:"entries"`
	Cursor  string           `json:"cursor"`
	HasMore bool             `json:"has_more"`
}

type createFolderArg struct {
	Path       string `json:"path"`
	Autorename bool   `json:"autorename"`
}

type createFolderResult struct {
	Metadata metadataResult `json:"metadata"`
}

type sharedLinkSettings struct {
	RequestedVisibility string `json:"requested_visibility,omitempty"`
	Audience            string `json:"audience,omitempty"`
	AllowDownload       *bool  `json:"allow_download,omitempty"`
}

type createSharedLinkArg struct {
	Path     string             `json:"path"`
	Settings sharedLinkSettings `json:"settings"`
}

type listSharedLinksArg struct {
	Path       string `json:"path"`
	DirectOnly bool   `json:"direct_only"`
}

type sharedLinkMetadata struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Expires string `json:"expires,omitempty"`
	LinkPermissions struct {
		ResolvedVisibility struct {
			Tag string `json:".tag"`
		} `json:"resolved_visibility"`
	} `json:"link_permissions"`
}

type listSharedLinksResult struct {
	Links []sharedLinkMetadata `json:"links"`
}

type listSharedFoldersArg struct {
	Limit uint32 `json:"limit,omitempty"`
}

type listSharedFoldersContinueArg struct {
	Cursor string `json:"cursor"`
}

type sharedFolderMetadata struct {
	Name           string `json:"name"`
	SharedFolderID string `json:"shared_folder_id"`
	PathLower      string `json:"path_lower,omitempty"`
	IsTeamFolder   bool   `json:"is_team_folder"`
}

type listSharedFoldersResult struct {
	Entries []sharedFolderMetadata `json:"entries"`
	Cursor  string                 `json:"cursor,omitempty"`
}

type apiErrorBody struct {
	ErrorSummary string `json:"error_summary"`
}
