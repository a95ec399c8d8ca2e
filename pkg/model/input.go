package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
)

type xmlResource struct {
	Id   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type xmlRecord struct {
	XMLName    xml.Name
	Attributes []xml.Attr `xml:",any,attr"`
}

type xmlGroup struct {
	XMLName xml.Name
	Records []xmlRecord `xml:",any"`
}

type xmlInstance struct {
	XMLName  xml.Name `xml:"Instance"`
	MetaData struct {
		InstanceName string `xml:"InstanceName"`
		Contributor  string `xml:"Contributor"`
		Date         struct {
			Year string `xml:"year,attr"`
		} `xml:"Date"`
	} `xml:"MetaData"`
	Structure struct {
		Format struct {
			GameMode string `xml:"gameMode"`
		} `xml:"Format"`
	} `xml:"Structure"`
	ObjectiveFunction struct {
		Objective string `xml:"Objective"`
	} `xml:"ObjectiveFunction"`
	Resources struct {
		Teams []xmlResource `xml:"Teams>team"`
		Slots []xmlResource `xml:"Slots>slot"`
	} `xml:"Resources"`
	Constraints struct {
		Groups []xmlGroup `xml:",any"`
	} `xml:"Constraints"`
}

func InstanceFromXml(file string) (Instance, error) {
	reader, err := os.Open(file)
	if err != nil {
		return Instance{}, fmt.Errorf("cannot open instance file: %w", err)
	}
	defer reader.Close()

	instance, err := ReadInstance(reader)
	if err != nil {
		return Instance{}, fmt.Errorf("cannot read instance \"%v\": %w", file, err)
	}
	return instance, nil
}

// ReadInstance decodes a RobinX instance and checks it describes a well-formed double round-robin
func ReadInstance(reader io.Reader) (Instance, error) {
	var raw xmlInstance
	if err := xml.NewDecoder(reader).Decode(&raw); err != nil {
		return Instance{}, err
	}

	instance := Instance{
		Name:        strings.TrimSpace(raw.MetaData.InstanceName),
		Contributor: strings.TrimSpace(raw.MetaData.Contributor),
		Year:        raw.MetaData.Date.Year,
		GameMode:    GameMode(strings.TrimSpace(raw.Structure.Format.GameMode)),
		Objective:   strings.TrimSpace(raw.ObjectiveFunction.Objective),
		Teams:       lo.Map(raw.Resources.Teams, func(team xmlResource, _ int) Team { return Team(team) }),
		Slots:       lo.Map(raw.Resources.Slots, func(slot xmlResource, _ int) Slot { return Slot(slot) }),
		Constraints: make([]Constraint, 0),
	}

	for _, group := range raw.Constraints.Groups {
		for _, record := range group.Records {
			attributes := lo.SliceToMap(record.Attributes, func(attribute xml.Attr) (string, string) {
				return attribute.Name.Local, attribute.Value
			})
			constraint, err := ParseConstraint(record.XMLName.Local, len(instance.Constraints), attributes)
			if err != nil {
				return Instance{}, err
			}
			instance.Constraints = append(instance.Constraints, constraint)
		}
	}

	if err := instance.Validate(); err != nil {
		return Instance{}, err
	}
	return instance, nil
}
