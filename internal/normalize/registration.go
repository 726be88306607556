package normalize

import "github.com/agrilink/crm-sync/internal/domain"

// NewRegistration maps a pending record plus its linked user profile into
// the canonical Registration shape. Missing optional fields become empty
// strings or empty slices; the mapping itself never fails.
func NewRegistration(record domain.PendingRecord, profile domain.UserProfile) domain.Registration {
	crops := make([]string, len(record.Crops))
	copy(crops, record.Crops)

	fertilizers := make([]domain.FertilizerEntry, len(record.Fertilizers))
	copy(fertilizers, record.Fertilizers)

	return domain.Registration{
		FirstName:       profile.FirstName,
		SecondName:      profile.LastName,
		FarmName:        record.FarmName,
		Location:        record.LocationName,
		Latitude:        record.Latitude,
		Longitude:       record.Longitude,
		FarmSize:        record.FarmSize,
		Phone:           profile.Phone,
		NormalizedPhone: Phone(profile.Phone),
		Details:         record.Details,
		Crops:           crops,
		Fertilizers:     fertilizers,
	}
}
