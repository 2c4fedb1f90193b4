package octoprint

// StateOperational is the connection state in which OctoPrint will accept a
// new print job.
const StateOperational = "Operational"

// Version is the response of /api/version.
type Version struct {
	API    string `json:"api"`
	Server string `json:"server"`
	Text   string `json:"text"`
}

// Connection is the response of /api/connection.
type Connection struct {
	Current struct {
		State          string `json:"state"`
		Port           string `json:"port"`
		Baudrate       int    `json:"baudrate"`
		PrinterProfile string `json:"printerProfile"`
	} `json:"current"`
}

// ListFilesQuery holds query parameters for the file-listing endpoint.
type ListFilesQuery struct {
	Recursive bool `url:"recursive"`
}

// File is one entry of a file listing.
type File struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Origin string `json:"origin"`
	Size   int64  `json:"size"`
}

// FileList is the response of /api/files/local.
type FileList struct {
	Files []File `json:"files"`
}

// UploadResponse is the response of a file upload.
type UploadResponse struct {
	Done  bool `json:"done"`
	Files struct {
		Local struct {
			Name   string `json:"name"`
			Origin string `json:"origin"`
			Path   string `json:"path"`
		} `json:"local"`
	} `json:"files"`
}

// jobCommand is the body for file commands like select-and-print.
type jobCommand struct {
	Command string `json:"command"`
	Print   bool   `json:"print"`
}
