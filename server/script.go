package server

import (
	"io"
	"text/template"

	"github.com/pkg/errors"
)

// scriptTemplate opens a native file picker where one exists, falls back to
// prompting for a path, then posts the file back to the origin.
var scriptTemplate = template.Must(template.New("script").Parse(`#!/bin/bash
# ASCII Draw command line helper
# Works on macOS, Linux and Windows (Git Bash/WSL)

OS_TYPE=$(uname -s)
FILE=""

echo "ASCII Draw"

if [[ "$OS_TYPE" == "Darwin" ]]; then
  FILE=$(osascript -e 'POSIX path of (choose file with prompt "Select an image to convert to ASCII" of type {"public.image"})' 2>/dev/null)
elif [[ "$OS_TYPE" == "Linux" ]]; then
  if command -v zenity >/dev/null 2>&1; then
    FILE=$(zenity --file-selection --title="Select an image" 2>/dev/null)
  elif command -v kdialog >/dev/null 2>&1; then
    FILE=$(kdialog --getopenfilename . "Images (*.png *.jpg *.jpeg *.webp *.gif)" 2>/dev/null)
  fi
elif [[ "$OS_TYPE" == *"NT"* ]] || [[ "$OS_TYPE" == *"MINGW"* ]] || [[ "$OS_TYPE" == *"CYGWIN"* ]] || [[ -f /proc/version && $(cat /proc/version) == *"Microsoft"* ]]; then
  FILE=$(powershell.exe -NoProfile -Command "Add-Type -AssemblyName System.Windows.Forms; $f = New-Object System.Windows.Forms.OpenFileDialog; $f.Filter = 'Images|*.jpg;*.jpeg;*.png;*.webp;*.gif'; $f.ShowDialog() | Out-Null; $f.FileName" 2>/dev/null | tr -d '\r')
  if [[ -n "$FILE" ]] && command -v wslpath >/dev/null 2>&1; then
    FILE=$(wslpath -u "$FILE")
  fi
fi

if [ -z "$FILE" ]; then
  echo "No file picker available or selection cancelled."
  read -p "Path to image: " FILE
fi

if [ -z "$FILE" ] || [ ! -f "$FILE" ]; then
  echo "Error: file not found: $FILE"
  exit 1
fi

echo "Processing $FILE..."
curl -F "file=@$FILE" {{.Origin}}/api/convert
`))

func renderScript(w io.Writer, origin string) error {
	if err := scriptTemplate.Execute(w, struct{ Origin string }{origin}); err != nil {
		return errors.Wrap(err, "failed to render script")
	}
	return nil
}
