package report

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/kvesta/imagescan/config"
	"github.com/kvesta/imagescan/internal/vulnscan"
	"github.com/kvesta/imagescan/pkg/inspector"
	"github.com/kvesta/imagescan/pkg/osrelease"
	"github.com/kvesta/imagescan/pkg/registry"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/json"
)

// DefaultOutput writes a dated file under ./output.
const DefaultOutput = "output"

// Report gathers whatever parts of an image analysis were requested.
type Report struct {
	Image    *inspector.ImageInfo `json:"image,omitempty" yaml:"image,omitempty"`
	Official *registry.Result     `json:"official,omitempty" yaml:"official,omitempty"`
	Scan     *vulnscan.ScanResult `json:"scan,omitempty" yaml:"scan,omitempty"`

	// OS is only probed when dpkg is missing from the image.
	OS *osrelease.OsVersion `json:"os,omitempty" yaml:"os,omitempty"`
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getOutputFile(outfile, format string) (string, error) {
	ext := config.FormatJSON
	if format == config.FormatYAML {
		ext = config.FormatYAML
	}

	if outfile == DefaultOutput {
		pwd, _ := os.Getwd()
		folder := filepath.Join(pwd, DefaultOutput)
		if !exists(folder) {
			err := os.MkdirAll(folder, os.FileMode(0755))
			if err != nil {
				return "", err
			}
		}
		nowStamp := time.Now().Format("2006-01-02")

		return filepath.Join(folder, fmt.Sprintf("%s.%s", nowStamp, ext)), nil
	}

	folder := filepath.Dir(outfile)
	if !exists(folder) {
		err := os.MkdirAll(folder, os.FileMode(0755))
		if err != nil {
			return "", err
		}
	}

	return outfile, nil
}

// Encode serialises rep as YAML when format asks for it and as JSON otherwise.
func Encode(rep *Report, format string) ([]byte, error) {
	if format == config.FormatYAML {
		return yaml.Marshal(rep)
	}

	return json.Marshal(rep)
}

// Print writes rep to w in a machine readable format.
func Print(w io.Writer, rep *Report, format string) error {
	data, err := Encode(rep, format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// SaveReport writes rep to outfile and returns the final path.
func SaveReport(rep *Report, outfile, format string) (string, error) {
	filename, err := getOutputFile(outfile, format)
	if err != nil {
		return "", err
	}

	data, err := Encode(rep, format)
	if err != nil {
		return "", err
	}

	err = ioutil.WriteFile(filename, data, 0644)
	if err != nil {
		return "", err
	}

	log.Infof("Output file is saved in: %s", config.Yellow(filename))

	return filename, nil
}
