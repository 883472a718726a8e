package config

import (
	"encoding/xml"
	"os"
	"strconv"
)

func readXML(path string) (*xml.Decoder, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	dec := xml.NewDecoder(f)
	return dec, f, nil
}

func attrValue(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func parseIntAttr(start xml.StartElement, name string) (int, bool, error) {
	v, ok := attrValue(start, name)
	if !ok {
		return 0, false, nil
	}
	val, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, err
	}
	return val, true, nil
}
