package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agrilink/crm-sync/internal/domain"
)

func TestNewRegistration_MapsAllFields(t *testing.T) {
	record := domain.PendingRecord{
		ID:           "rec-1",
		UserRef:      "user-1",
		FarmName:     "Chilanga Farm",
		FarmSize:     "5-10",
		LocationName: "Chilanga",
		Latitude:     -15.55,
		Longitude:    28.27,
		Crops:        []string{"Maize", "Soya"},
		Fertilizers:  []domain.FertilizerEntry{{Code: "UREA46", Quantity: 4}},
		Details:      "needs delivery",
	}
	profile := domain.UserProfile{
		Ref:       "user-1",
		FirstName: "Bupe",
		LastName:  "Mwansa",
		Phone:     "0955123456",
	}

	reg := NewRegistration(record, profile)

	require.Equal(t, "Bupe", reg.FirstName)
	require.Equal(t, "Mwansa", reg.SecondName)
	require.Equal(t, "Chilanga Farm", reg.FarmName)
	require.Equal(t, "Chilanga", reg.Location)
	require.Equal(t, "5-10", reg.FarmSize)
	require.Equal(t, "0955123456", reg.Phone)
	require.Equal(t, "+260 955 123 456", reg.NormalizedPhone)
	require.Equal(t, []string{"Maize", "Soya"}, reg.Crops)
	require.Equal(t, []domain.FertilizerEntry{{Code: "UREA46", Quantity: 4}}, reg.Fertilizers)
	require.Equal(t, "Bupe Mwansa", reg.FullName())
}

func TestNewRegistration_MissingOptionalFieldsDefault(t *testing.T) {
	reg := NewRegistration(domain.PendingRecord{ID: "rec-2"}, domain.UserProfile{})

	require.Empty(t, reg.FirstName)
	require.Empty(t, reg.SecondName)
	require.Empty(t, reg.Details)
	require.NotNil(t, reg.Crops)
	require.Empty(t, reg.Crops)
	require.NotNil(t, reg.Fertilizers)
	require.Empty(t, reg.Fertilizers)
	require.Equal(t, "+260 000 000 000", reg.NormalizedPhone)
}

func TestNewRegistration_CopiesSlices(t *testing.T) {
	crops := []string{"Maize"}
	record := domain.PendingRecord{Crops: crops}

	reg := NewRegistration(record, domain.UserProfile{})
	crops[0] = "Sorghum"

	require.Equal(t, []string{"Maize"}, reg.Crops)
}
