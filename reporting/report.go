package reporting

import (
	"fmt"
	"html/template"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/pkg/detection"
	htmlTempl "github.com/activecm/snitch/reporting/templates"
	"github.com/activecm/snitch/resources"
	"github.com/skratchdot/open-golang/open"
)

// PrintHTML queries the recorded detections with the given filter and
// uses HTML templating to write the results into a directory named
// `snitch-html-report` within the current working directory, then opens
// the report in the default browser. mongodb must be running to call
// this command, exits on any writing error.
func PrintHTML(res *resources.Resources, filter detection.Filter) error {
	events, err := detection.Query(res, filter)
	if err != nil {
		return err
	}

	//create outFolder as our string builder
	outFolder := []byte("snitch-html-report")
	outFolderBaseLen := len(outFolder)
	counter := 1

	//while the file exists, append the next counter
	for _, err := os.Stat(string(outFolder)); err == nil; _, err = os.Stat(string(outFolder)) {
		outFolder = outFolder[:outFolderBaseLen]
		outFolder = append(outFolder, []byte(strconv.Itoa(counter))...)
		counter++
	}
	outFolderString := string(outFolder)

	err = os.Mkdir(outFolderString, 0755)
	if err != nil {
		return err
	}

	err = ioutil.WriteFile(outFolderString+"/style.css", htmlTempl.CSStempl, 0644)
	if err != nil {
		return err
	}

	err = writeReportPage(outFolderString, events)
	if err != nil {
		return err
	}

	fmt.Println("[-] Wrote outputs, check ./" + outFolderString + " for files")
	open.Run("./" + outFolderString + "/index.html")
	return nil
}

func writeReportPage(outFolder string, events []detection.Event) error {
	f, err := os.Create(outFolder + "/index.html")
	if err != nil {
		return err
	}
	defer f.Close()

	info := htmlTempl.ReportingInfo{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05 MST"),
		Total:       len(events),
	}

	templ := htmlTempl.EmptyTempl
	if len(events) > 0 {
		templ = htmlTempl.DetectionsTempl
		info.Writer = detectionRows(events)
		for _, event := range events {
			if event.MatchType == detection.TypeMatch {
				info.Matches++
			} else {
				info.Baselines++
			}
		}
	}

	out, err := template.New("index.html").Parse(templ)
	if err != nil {
		return err
	}
	return out.Execute(f, info)
}

func detectionRows(events []detection.Event) template.HTML {
	var w string
	for _, event := range events {
		w += "<tr" + severityClass(event.Severity) + "><td>" + template.HTMLEscapeString(event.Timestamp.Format(time.RFC3339)) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.ProcessName) + "</td>"
		w += "<td>" + strconv.Itoa(event.PID) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.RemoteIP+":"+strconv.Itoa(int(event.RemotePort))) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.RDNS) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.MatchedPattern) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.Category) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.Severity.String()) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.MatchType) + "</td>"
		w += "<td>" + strconv.Itoa(event.RepeatCount) + "</td>"
		w += "<td>" + template.HTMLEscapeString(event.Country) + "</td></tr>"
	}
	return template.HTML(w)
}

func severityClass(severity blocklist.Severity) string {
	switch severity {
	case blocklist.High:
		return ` class="sev-high"`
	case blocklist.Medium:
		return ` class="sev-medium"`
	}
	return ""
}
