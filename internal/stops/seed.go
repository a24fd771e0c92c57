package stops

import (
	"math/rand/v2"

	"blueway/internal/domain"
)

var (
	paulista   = domain.Point{Lat: -23.563, Lng: -46.6543}
	moema      = domain.Point{Lat: -23.5913, Lng: -46.6652}
	interlagos = domain.Point{Lat: -23.6815, Lng: -46.675}
)

// DefaultStartLocation is where a trip starts when its route is unknown.
var DefaultStartLocation = paulista

// Default returns the São Paulo seed data. Paths are generated from a fixed
// seed so every process sees the same polylines.
func Default() *Catalog {
	stopPoints := []domain.StopPoint{
		{
			ID:            "moema",
			Name:          "Moema",
			Address:       "Av. Ibirapuera, 3103 - Moema",
			Description:   "Ponto próximo ao Parque Ibirapuera",
			Location:      moema,
			AvailableVans: 5,
			WaitingTime:   "5-10 min",
			Routes:        []string{"route1", "route3"},
		},
		{
			ID:            "interlagos",
			Name:          "Shopping Interlagos",
			Address:       "Av. Interlagos, 2255 - Interlagos",
			Description:   "Ponto na entrada principal do Shopping",
			Location:      interlagos,
			AvailableVans: 3,
			WaitingTime:   "10-15 min",
			Routes:        []string{"route2", "route3"},
		},
		{
			ID:            "paulista",
			Name:          "Av. Paulista",
			Address:       "Av. Paulista, 1578 - Bela Vista",
			Description:   "Ponto próximo ao MASP",
			Location:      paulista,
			AvailableVans: 7,
			WaitingTime:   "3-8 min",
			Routes:        []string{"route1", "route2"},
		},
	}

	rng := rand.New(rand.NewPCG(2024, 7))
	routes := []domain.VanRoute{
		{
			ID:             "route1",
			Name:           "Linha 1 - Paulista-Moema",
			Description:    "Rota que conecta a Av. Paulista a Moema",
			Color:          "#e74c3c",
			Path:           JitteredPath(rng, paulista, moema, 20),
			Stops:          []string{"paulista", "moema"},
			Frequency:      "10-15 min",
			FirstDeparture: "05:00",
			LastDeparture:  "23:00",
		},
		{
			ID:             "route2",
			Name:           "Linha 2 - Paulista-Interlagos",
			Description:    "Rota que conecta a Av. Paulista ao Shopping Interlagos",
			Color:          "#3498db",
			Path:           JitteredPath(rng, paulista, interlagos, 30),
			Stops:          []string{"paulista", "interlagos"},
			Frequency:      "15-20 min",
			FirstDeparture: "05:30",
			LastDeparture:  "22:30",
		},
		{
			ID:             "route3",
			Name:           "Linha 3 - Moema-Interlagos",
			Description:    "Rota que conecta Moema ao Shopping Interlagos",
			Color:          "#2ecc71",
			Path:           JitteredPath(rng, moema, interlagos, 25),
			Stops:          []string{"moema", "interlagos"},
			Frequency:      "12-18 min",
			FirstDeparture: "06:00",
			LastDeparture:  "22:00",
		},
	}

	c, err := New(stopPoints, routes)
	if err != nil {
		panic("stops: invalid seed data: " + err.Error())
	}
	return c
}

// JitteredPath walks from start to end in n legs, nudging every intermediate
// point by up to ±0.001° so the line looks like streets rather than a ruler.
// The endpoints are exact.
func JitteredPath(rng *rand.Rand, start, end domain.Point, n int) []domain.Point {
	if n < 1 {
		n = 1
	}
	path := make([]domain.Point, 0, n+1)
	path = append(path, start)
	dLat := end.Lat - start.Lat
	dLng := end.Lng - start.Lng
	for i := 1; i < n; i++ {
		ratio := float64(i) / float64(n)
		path = append(path, domain.Point{
			Lat: start.Lat + dLat*ratio + (rng.Float64()-0.5)*0.002,
			Lng: start.Lng + dLng*ratio + (rng.Float64()-0.5)*0.002,
		})
	}
	return append(path, end)
}
