package affiliate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kaglioster-hub/vrabo/internal/affiliate"
)

func TestURL_PrimaryVariable(t *testing.T) {
	t.Parallel()

	r := affiliate.NewResolver([]string{"AFF_ID_HOTEL=https://aff.example/hotel"}, nil)
	assert.Equal(t, "https://aff.example/hotel", r.URL("HOTEL"))
	assert.Equal(t, "https://aff.example/hotel", r.URL("hotel"))
}

func TestURL_SkipsPlaceholderAndFallsThroughVariants(t *testing.T) {
	t.Parallel()

	r := affiliate.NewResolver([]string{
		"AFF_ID_CAR=https://PLACEHOLDER",
		"AFF_ID_CAR2=",
		"NEXT_PUBLIC_AFF_ID_CAR3=https://aff.example/car3",
		"AFF_ID_CAR4=https://aff.example/car4",
	}, nil)

	assert.Equal(t, "https://aff.example/car3", r.URL("CAR"))
}

func TestURL_PublicAliasAtSameLevel(t *testing.T) {
	t.Parallel()

	r := affiliate.NewResolver([]string{"NEXT_PUBLIC_AFF_ID_FLIGHT=https://aff.example/f"}, nil)
	assert.Equal(t, "https://aff.example/f", r.URL("FLIGHT"))
}

func TestURL_ConfiguredMapIsLastResort(t *testing.T) {
	t.Parallel()

	r := affiliate.NewResolver(
		[]string{"AFF_ID_ENERGY=https://env.example/e"},
		map[string]string{"energy": "https://yaml.example/e", "software": "https://yaml.example/s"},
	)

	assert.Equal(t, "https://env.example/e", r.URL("ENERGY"))
	assert.Equal(t, "https://yaml.example/s", r.URL("SOFTWARE"))
}

func TestURL_MissingResolvesToHash(t *testing.T) {
	t.Parallel()

	r := affiliate.NewResolver(nil, nil)
	assert.Equal(t, affiliate.Unresolved, r.URL("TRADING"))
	assert.Equal(t, affiliate.Unresolved, r.URL("UNKNOWNCATEGORY"))
	assert.Len(t, r.Missing(), len(affiliate.Keys))
}

func TestURL_UnknownKeyStillReadsSnapshot(t *testing.T) {
	t.Parallel()

	r := affiliate.NewResolver([]string{"AFF_ID_BOATS=https://aff.example/boats", "UNRELATED=x"}, nil)
	assert.Equal(t, "https://aff.example/boats", r.URL("boats"))
}
