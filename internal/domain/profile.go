package domain

// UserProfile is the external identity record a pending record points at.
// All fields are optional on the source side and default to empty strings.
type UserProfile struct {
	Ref            string
	FirstName      string
	LastName       string
	Phone          string
	IDPhotoURL     string
	IDPhotoBackURL string
	SelfiePhotoURL string
}

// Photo pairs a source URL with the attachment filename it is stored under
// in the CRM.
type Photo struct {
	URL      string
	FileName string
}

// Photos returns the identity photos present on the profile, in upload order.
func (p UserProfile) Photos() []Photo {
	all := []Photo{
		{URL: p.IDPhotoURL, FileName: "ID_Front.jpg"},
		{URL: p.IDPhotoBackURL, FileName: "ID_Back.jpg"},
		{URL: p.SelfiePhotoURL, FileName: "Selfie.jpg"},
	}
	photos := make([]Photo, 0, len(all))
	for _, photo := range all {
		if photo.URL == "" {
			continue
		}
		photos = append(photos, photo)
	}
	return photos
}
