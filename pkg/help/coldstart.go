package help

const ColdstartYAML = `# audiofetch Quick Start

what_it_does: "Downloads the UI sound effects listed in a manifest into assets/audio, skipping files already present"

commands:
  fetch_all: |
    audiofetch
    audiofetch fetch --dir assets/audio

  note: "Flags go after the command name: 'audiofetch list --dir x', not 'audiofetch --dir x list'"

  fetch_some: |
    audiofetch fetch --only bell.mp3,chime.mp3

  refetch: |
    audiofetch fetch --force --only bell.mp3

  custom_manifest: |
    audiofetch fetch --manifest sounds.yaml

  parallel: |
    audiofetch fetch --workers 4

  machine_output: |
    audiofetch fetch --format json --quiet

  list_assets: |
    audiofetch list

  history: |
    audiofetch history
    audiofetch history 3

manifest_format: |
  dir: assets/audio
  assets:
    - name: bell.mp3
      url: https://example.com/bell.mp3
      backups:
        - https://mirror.example.com/bell.mp3

exit_codes:
  0: "Every asset is present"
  1: "Some assets failed"
  2: "All assets failed, or setup error"

key_files:
  - ".audiofetch/audiofetch.db (run history)"
  - ".audiofetch/resolved.yaml (landing page cache)"
  - ".audiofetch/failed-assets.yaml (last run's failures)"

environment:
  - "Every flag has an AUDIOFETCH_* variable, e.g. AUDIOFETCH_DIR, AUDIOFETCH_WORKERS"
  - ".env and .env.local are loaded when present"
`
