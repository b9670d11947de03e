package models

import (
	"fmt"
	"sort"
	"strconv"
)

const (
	SectionIntroduction = "introduction"
	SectionConclusion   = "conclusion"
	SectionCallToAction = "call_to_action"

	talkingPointPrefix = "talking_point_"
)

// Section is the resolved content behind one playback index.
type Section struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// TalkingPointID returns the section id of the i-th talking point.
func TalkingPointID(i int) string {
	return talkingPointPrefix + strconv.Itoa(i)
}

// SectionCount is the number of playable sections: introduction, N talking
// points, conclusion and call to action.
func (s PodcastScript) SectionCount() int {
	return len(s.MainTalkingPoints) + 3
}

// SectionAt resolves a playback index. Index 0 is the introduction, 1..N the
// talking points, N+1 the conclusion and N+2 the call to action.
func SectionAt(script PodcastScript, index int) (Section, error) {
	n := len(script.MainTalkingPoints)
	switch {
	case index < 0 || index > n+2:
		return Section{}, fmt.Errorf("section index %d out of range [0, %d]", index, n+2)
	case index == 0:
		return Section{Index: index, ID: SectionIntroduction, Title: "Introduction", Text: script.Introduction}, nil
	case index <= n:
		point := script.MainTalkingPoints[index-1]
		return Section{Index: index, ID: TalkingPointID(index - 1), Title: point.Title, Text: point.Content}, nil
	case index == n+1:
		return Section{Index: index, ID: SectionConclusion, Title: "Conclusion", Text: script.Conclusion}, nil
	default:
		return Section{Index: index, ID: SectionCallToAction, Title: "Call to Action", Text: script.CallToAction}, nil
	}
}

// Sections lists every section in playback order.
func Sections(script PodcastScript) []Section {
	sections := make([]Section, 0, script.SectionCount())
	for i := 0; i < script.SectionCount(); i++ {
		section, _ := SectionAt(script, i)
		sections = append(sections, section)
	}
	return sections
}

// SectionIDs lists section ids in playback order.
func SectionIDs(script PodcastScript) []string {
	ids := make([]string, 0, script.SectionCount())
	for _, section := range Sections(script) {
		ids = append(ids, section.ID)
	}
	return ids
}

// SynthesisOrder lists sections in the order audio is generated: the three
// fixed sections first, then talking points by index.
func SynthesisOrder(script PodcastScript) []Section {
	all := Sections(script)
	n := len(script.MainTalkingPoints)
	order := make([]Section, 0, len(all))
	order = append(order, all[0], all[n+1], all[n+2])
	order = append(order, all[1:n+1]...)
	return order
}

// CheckAlignment reports whether audio has exactly one entry per section of script.
func CheckAlignment(script PodcastScript, audio SectionAudioMap) error {
	want := SectionIDs(script)
	if len(audio) != len(want) {
		return fmt.Errorf("audio map has %d sections, script has %d", len(audio), len(want))
	}
	var missing []string
	for _, id := range want {
		if _, ok := audio[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("audio map missing sections %v", missing)
	}
	return nil
}
