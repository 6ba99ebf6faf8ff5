package extract

import "github.com/carverauto/sentinelcase/pkg/models"

// weights ranks observable types by how strongly a shared sighting ties two
// signals together. Loaded once; never mutated.
var weights = map[models.ObservableType]float64{
	models.ObservableTypeSHA256:   10,
	models.ObservableTypeMD5:      8,
	models.ObservableTypeDomain:   6,
	models.ObservableTypeURL:      6,
	models.ObservableTypeIP:       4,
	models.ObservableTypeEmail:    4,
	models.ObservableTypeUsername: 3,
	models.ObservableTypeHostname: 3,
}

// Weight returns the relatedness base weight for an observable type.
// Unknown types weigh 1.
func Weight(obsType models.ObservableType) float64 {
	if w, ok := weights[obsType]; ok {
		return w
	}

	return 1
}
