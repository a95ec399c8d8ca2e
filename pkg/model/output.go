package model

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
)

type xmlMatch struct {
	Home int `xml:"home,attr"`
	Away int `xml:"away,attr"`
	Slot int `xml:"slot,attr"`
}

type xmlSolution struct {
	XMLName  xml.Name `xml:"Solution"`
	MetaData struct {
		InstanceName   string `xml:"InstanceName,omitempty"`
		SolutionName   string `xml:"SolutionName,omitempty"`
		ObjectiveValue struct {
			Infeasibility int `xml:"infeasibility,attr"`
			Objective     int `xml:"objective,attr"`
		} `xml:"ObjectiveValue"`
	} `xml:"MetaData"`
	Games []xmlMatch `xml:"Games>ScheduledMatch"`
}

type xmlMultipleSchedules struct {
	XMLName   xml.Name      `xml:"MultipleSchedules"`
	Solutions []xmlSolution `xml:"Solution"`
}

// Solution is a schedule together with the figures reported in its metadata
type Solution struct {
	Name          string
	Schedule      Schedule
	Objective     int
	Infeasibility int
}

func SolutionToXml(file string, instance Instance, solution Solution) error {
	writer, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("cannot create solution file: %w", err)
	}
	defer writer.Close()

	if solution.Name == "" {
		solution.Name = file
	}
	return WriteSolution(writer, instance, solution)
}

func WriteSolution(writer io.Writer, instance Instance, solution Solution) error {
	var raw xmlSolution
	raw.MetaData.InstanceName = instance.Name
	raw.MetaData.SolutionName = solution.Name
	raw.MetaData.ObjectiveValue.Infeasibility = solution.Infeasibility
	raw.MetaData.ObjectiveValue.Objective = solution.Objective
	for slot, games := range solution.Schedule {
		for _, game := range games {
			raw.Games = append(raw.Games, xmlMatch{Home: game.Home, Away: game.Away, Slot: slot})
		}
	}

	if _, err := io.WriteString(writer, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(raw); err != nil {
		return fmt.Errorf("cannot encode solution: %w", err)
	}
	_, err := io.WriteString(writer, "\n")
	return err
}

func SolutionsFromXml(file string) ([]Solution, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read solutions file: %w", err)
	}
	return ReadSolutions(bytes.NewReader(content))
}

// ReadSolutions accepts either a single <Solution> document or several of them wrapped in <MultipleSchedules>
func ReadSolutions(reader io.Reader) ([]Solution, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	root, err := rootElement(content)
	if err != nil {
		return nil, err
	}

	switch root {
	case "Solution":
		var raw xmlSolution
		if err := xml.Unmarshal(content, &raw); err != nil {
			return nil, err
		}
		solution, err := fromXmlSolution(raw)
		if err != nil {
			return nil, err
		}
		return []Solution{solution}, nil
	case "MultipleSchedules":
		var raw xmlMultipleSchedules
		if err := xml.Unmarshal(content, &raw); err != nil {
			return nil, err
		}
		solutions := make([]Solution, 0, len(raw.Solutions))
		for _, rawSolution := range raw.Solutions {
			solution, err := fromXmlSolution(rawSolution)
			if err != nil {
				return nil, err
			}
			solutions = append(solutions, solution)
		}
		return solutions, nil
	}
	return nil, fmt.Errorf("unexpected root element <%v>", root)
}

func rootElement(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("cannot find root element: %w", err)
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func fromXmlSolution(raw xmlSolution) (Solution, error) {
	if match, ok := lo.Find(raw.Games, func(match xmlMatch) bool { return match.Slot < 0 }); ok {
		return Solution{}, fmt.Errorf("scheduled match %d-%d has negative slot %d", match.Home, match.Away, match.Slot)
	}

	slots := 0
	if len(raw.Games) > 0 {
		slots = lo.MaxBy(raw.Games, func(a, b xmlMatch) bool { return a.Slot > b.Slot }).Slot + 1
	}
	schedule := make(Schedule, slots)
	for i := range schedule {
		schedule[i] = make([]Game, 0)
	}
	for _, match := range raw.Games {
		schedule[match.Slot] = append(schedule[match.Slot], Game{Home: match.Home, Away: match.Away})
	}

	return Solution{
		Name:          raw.MetaData.SolutionName,
		Schedule:      schedule,
		Objective:     raw.MetaData.ObjectiveValue.Objective,
		Infeasibility: raw.MetaData.ObjectiveValue.Infeasibility,
	}, nil
}
