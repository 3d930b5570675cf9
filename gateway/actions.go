package gateway

// The gateway speaks a single-endpoint protocol: every operation is a POST
// whose body is a tagged action envelope. Exactly one action field is set
// per request; the response reuses the action name as its payload key.

// EntryType discriminates filesystem entries in listings and trees.
type EntryType string

const (
	EntryTypeFile      EntryType = "file"
	EntryTypeDirectory EntryType = "directory"
)

// DirEntry is one row of a directory listing. Order is preserved as
// returned by the gateway.
type DirEntry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}

// TreeNode is a recursive view of a subtree. Directory nodes carry their
// children; file nodes omit the field entirely.
type TreeNode struct {
	Name     string      `json:"name"`
	Type     EntryType   `json:"type"`
	Children []*TreeNode `json:"children,omitempty"`
}

// pathArgs carries the common node+path pair used by most actions.
type pathArgs struct {
	Node string `json:"node"`
	Path string `json:"path"`
}

// contentArgs extends pathArgs for actions that write file content.
type contentArgs struct {
	Node    string `json:"node"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

type fileSystemAction struct {
	ReadPublicDir *pathArgs    `json:"ReadPublicDir,omitempty"`
	ReadFile      *pathArgs    `json:"ReadFile,omitempty"`
	ReadFileTree  *pathArgs    `json:"ReadFileTree,omitempty"`
	CreateDir     *pathArgs    `json:"CreateDir,omitempty"`
	DeleteDir     *pathArgs    `json:"DeleteDir,omitempty"`
	CreateFile    *contentArgs `json:"CreateFile,omitempty"`
	WriteFile     *contentArgs `json:"WriteFile,omitempty"`
	DeleteFile    *pathArgs    `json:"DeleteFile,omitempty"`
}

// systemAction covers the non-filesystem actions. ReadApiKey takes no
// arguments; the nil pointer marshals to the expected JSON null.
type systemAction struct {
	ReadApiKey *struct{} `json:"ReadApiKey"`
}

type actionEnvelope struct {
	FileSystem *fileSystemAction `json:"FileSystem,omitempty"`
	System     *systemAction     `json:"System,omitempty"`
}

type remoteFailure struct {
	Message string `json:"message"`
}

type dirListing struct {
	Entries []DirEntry `json:"entries"`
}

type fileContent struct {
	Content string `json:"content"`
}

type treePayload struct {
	Root *TreeNode `json:"root"`
}

// opStatus is the confirmation payload returned by mutation actions.
type opStatus struct {
	Status string `json:"status"`
}

type keyPayload struct {
	Key string `json:"key"`
}

type responseEnvelope struct {
	Error         *remoteFailure `json:"Error,omitempty"`
	ReadPublicDir *dirListing    `json:"ReadPublicDir,omitempty"`
	ReadFile      *fileContent   `json:"ReadFile,omitempty"`
	ReadFileTree  *treePayload   `json:"ReadFileTree,omitempty"`
	CreateDir     *opStatus      `json:"CreateDir,omitempty"`
	DeleteDir     *opStatus      `json:"DeleteDir,omitempty"`
	CreateFile    *opStatus      `json:"CreateFile,omitempty"`
	WriteFile     *opStatus      `json:"WriteFile,omitempty"`
	DeleteFile    *opStatus      `json:"DeleteFile,omitempty"`
	ReadApiKey    *keyPayload    `json:"ReadApiKey,omitempty"`
}
