package stops

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/clbanning/mxj/v2"

	"blueway/internal/domain"
)

// LoadGPXFile reads a GPX document from disk. See LoadGPX.
func LoadGPXFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routes file: %w", err)
	}
	defer f.Close()
	return LoadGPX(f)
}

// LoadGPX builds a catalog from a GPX document. Waypoints become stop points
// and <rte> elements become van routes. BlueWay-specific fields live under
// <extensions>:
//
//	<wpt lat=".." lon=".."><name/><cmt>address</cmt><desc/>
//	  <extensions><id/><availableVans/><waitingTime/></extensions></wpt>
//	<rte><name/><desc/>
//	  <extensions><id/><color/><stops>a,b</stops><frequency/><firstDeparture/><lastDeparture/></extensions>
//	  <rtept lat=".." lon=".."/>...</rte>
func LoadGPX(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gpx: %w", err)
	}
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse gpx: %v", domain.ErrValidation, err)
	}
	root, ok := m["gpx"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing <gpx> root element", domain.ErrValidation)
	}

	var stopPoints []domain.StopPoint
	for i, item := range asList(root["wpt"]) {
		wpt, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: waypoint %d is empty", domain.ErrValidation, i)
		}
		sp, err := parseWaypoint(wpt)
		if err != nil {
			return nil, fmt.Errorf("%w: waypoint %d: %v", domain.ErrValidation, i, err)
		}
		stopPoints = append(stopPoints, sp)
	}

	var routes []domain.VanRoute
	for i, item := range asList(root["rte"]) {
		rte, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: route %d is empty", domain.ErrValidation, i)
		}
		vr, err := parseRoute(rte)
		if err != nil {
			return nil, fmt.Errorf("%w: route %d: %v", domain.ErrValidation, i, err)
		}
		routes = append(routes, vr)
	}

	return New(stopPoints, routes)
}

func parseWaypoint(wpt map[string]interface{}) (domain.StopPoint, error) {
	loc, err := parseLatLon(wpt)
	if err != nil {
		return domain.StopPoint{}, err
	}
	ext := asMap(wpt["extensions"])
	sp := domain.StopPoint{
		ID:          text(ext["id"]),
		Name:        text(wpt["name"]),
		Address:     text(wpt["cmt"]),
		Description: text(wpt["desc"]),
		Location:    loc,
		WaitingTime: text(ext["waitingTime"]),
	}
	if sp.ID == "" {
		sp.ID = slug(sp.Name)
	}
	if v := text(ext["availableVans"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.StopPoint{}, fmt.Errorf("availableVans %q: %v", v, err)
		}
		sp.AvailableVans = n
	}
	return sp, nil
}

func parseRoute(rte map[string]interface{}) (domain.VanRoute, error) {
	ext := asMap(rte["extensions"])
	vr := domain.VanRoute{
		ID:             text(ext["id"]),
		Name:           text(rte["name"]),
		Description:    text(rte["desc"]),
		Color:          text(ext["color"]),
		Frequency:      text(ext["frequency"]),
		FirstDeparture: text(ext["firstDeparture"]),
		LastDeparture:  text(ext["lastDeparture"]),
	}
	if vr.ID == "" {
		vr.ID = slug(vr.Name)
	}
	for _, s := range strings.Split(text(ext["stops"]), ",") {
		if s = strings.TrimSpace(s); s != "" {
			vr.Stops = append(vr.Stops, s)
		}
	}
	for j, item := range asList(rte["rtept"]) {
		pt, ok := item.(map[string]interface{})
		if !ok {
			return domain.VanRoute{}, fmt.Errorf("rtept %d has no coordinates", j)
		}
		p, err := parseLatLon(pt)
		if err != nil {
			return domain.VanRoute{}, fmt.Errorf("rtept %d: %v", j, err)
		}
		vr.Path = append(vr.Path, p)
	}
	return vr, nil
}

func parseLatLon(m map[string]interface{}) (domain.Point, error) {
	lat, err := strconv.ParseFloat(text(m["-lat"]), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("lat: %v", err)
	}
	lon, err := strconv.ParseFloat(text(m["-lon"]), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("lon: %v", err)
	}
	return domain.Point{Lat: lat, Lng: lon}, nil
}

// asList normalises mxj output: a repeated element is a slice, a single one
// is the bare value, a missing one is nil.
func asList(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case nil:
		return nil
	default:
		return []interface{}{t}
	}
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// text extracts character data from an mxj value. Elements that carry
// attributes keep their text under "#text".
func text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		return text(t["#text"])
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}
