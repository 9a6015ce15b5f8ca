package installshield

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/winpe"
)

// utf16le encodes an ASCII string as UTF-16LE without a terminator
func utf16le(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func writeStreamOverlay(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	var magic [14]byte
	copy(magic[:], magicStream)
	buf.Write(magic[:])
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(entries))))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))
	buf.Write(make([]byte, 26))

	for name, payload := range entries {
		wideName := utf16le(name)
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(wideName))))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0))) // flags
		buf.Write(make([]byte, 2))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(payload))))
		buf.Write(make([]byte, 10))
		buf.Write(wideName)
		buf.Write(payload)
	}
	return buf.Bytes()
}

func TestDetectSetupStreamEndToEnd(t *testing.T) {
	t.Parallel()

	overlay := writeStreamOverlay(t, map[string][]byte{
		"setup.ini": []byte("[Startup]\r\nProduct=Foo\r\nProductCode=ABC\r\n"),
	})
	pe := &winpe.File{OverlayOffset: 0, Size: int64(len(overlay))}

	setup, err := Detect(bytes.NewReader(overlay), pe, nil)
	require.NoError(t, err)
	require.NotNil(t, setup.Ini)

	records := setup.Records(manifest.ArchX64)
	require.Len(t, records, 1)
	assert.Equal(t, "InstallShield_ABC", records[0].ProductCode)
	require.Len(t, records[0].AppsAndFeatures, 1)
	assert.Equal(t, "Foo", records[0].AppsAndFeatures[0].DisplayName)
	assert.Equal(t, manifest.ArchX64, records[0].Architecture)
	assert.Equal(t, manifest.ScopeMachine, records[0].Scope)
}

func TestDetectLastDuplicateWins(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var magic [14]byte
	copy(magic[:], magicStream)
	buf.Write(magic[:])
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(2)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))
	buf.Write(make([]byte, 26))
	for _, payload := range []string{
		"[Startup]\r\nProduct=Old\r\n",
		"[Startup]\r\nProduct=New\r\n",
	} {
		wideName := utf16le("setup.ini")
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(wideName))))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))
		buf.Write(make([]byte, 2))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(payload))))
		buf.Write(make([]byte, 10))
		buf.Write(wideName)
		buf.WriteString(payload)
	}

	pe := &winpe.File{OverlayOffset: 0}
	setup, err := Detect(bytes.NewReader(buf.Bytes()), pe, nil)
	require.NoError(t, err)
	assert.Equal(t, "New", setup.Ini.Product)
}

func TestDetectPlainWithEncodedPayload(t *testing.T) {
	t.Parallel()

	plaintext := []byte("[Startup]\r\nProduct=Bar\r\nProductGUID=AAAA-BBBB\r\n")
	encoded := append([]byte(nil), plaintext...)
	encodeSlice(encoded, deriveKey("setup.ini"))

	var buf bytes.Buffer
	var magic [14]byte
	copy(magic[:], magicPlain)
	buf.Write(magic[:])
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))
	buf.Write(make([]byte, 26))

	var name [260]byte
	copy(name[:], "setup.ini")
	buf.Write(name[:])
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(flagEncoded)))
	buf.Write(make([]byte, 4))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(encoded))))
	buf.Write(make([]byte, 40))
	buf.Write(encoded)

	pe := &winpe.File{OverlayOffset: 0}
	setup, err := Detect(bytes.NewReader(buf.Bytes()), pe, nil)
	require.NoError(t, err)
	require.NotNil(t, setup.Ini)
	assert.Equal(t, "Bar", setup.Ini.Product)

	records := setup.Records(manifest.ArchX86)
	assert.Equal(t, "{AAAA-BBBB}", records[0].ProductCode)
}

func TestDetectSkipsNB10Stub(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString("NB10")
	buf.Write(make([]byte, 12))
	buf.WriteString("c:\\dev\\setup.pdb")
	buf.WriteByte(0)
	buf.Write(writeStreamOverlay(t, map[string][]byte{
		"setup.ini": []byte("[Startup]\r\nProduct=Foo\r\n"),
	}))

	pe := &winpe.File{OverlayOffset: 0}
	setup, err := Detect(bytes.NewReader(buf.Bytes()), pe, nil)
	require.NoError(t, err)
	assert.Equal(t, "Foo", setup.Ini.Product)
}

func TestDetectInstallScriptEntries(t *testing.T) {
	t.Parallel()

	payload := "[Startup]\r\nProduct=Scripted\r\nScriptDriven=1\r\n"
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(1)))
	for _, s := range []string{"setup.ini", "", "", strconv.Itoa(len(payload))} {
		buf.Write(utf16le(s))
		buf.Write([]byte{0, 0})
	}
	buf.WriteString(payload)

	pe := &winpe.File{
		OverlayOffset: 0,
		VersionInfo:   map[string]string{"ISInternalDescription": "InstallScript Setup Launcher"},
	}
	setup, err := Detect(bytes.NewReader(buf.Bytes()), pe, nil)
	require.NoError(t, err)
	require.NotNil(t, setup.Ini)
	assert.Equal(t, "Scripted", setup.Ini.Product)
	assert.Equal(t, DriverInstallScript, setup.Driver())
}

func TestDetectRejectsForeignOverlay(t *testing.T) {
	t.Parallel()

	pe := &winpe.File{OverlayOffset: 0}
	_, err := Detect(bytes.NewReader([]byte("MSCF\x00some cabinet overlay padding bytes....")), pe, nil)
	assert.ErrorIs(t, err, ErrNotInstallShield)
}

func TestDetectRejectsHeaderWithoutPayloads(t *testing.T) {
	t.Parallel()

	overlay := writeStreamOverlay(t, map[string][]byte{
		"data1.cab": []byte("not a config"),
	})
	pe := &winpe.File{OverlayOffset: 0}
	_, err := Detect(bytes.NewReader(overlay), pe, nil)
	assert.ErrorIs(t, err, ErrNotInstallShield)
}

func TestDetectNoOverlay(t *testing.T) {
	t.Parallel()

	pe := &winpe.File{OverlayOffset: -1}
	_, err := Detect(bytes.NewReader(nil), pe, nil)
	assert.ErrorIs(t, err, ErrNotInstallShield)
}

func TestPayloadDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	// the transform is not self-inverse, so encode and decode must be
	// verified against each other
	plaintext := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 40)
	key := deriveKey("setup.iss")

	t.Run("whole buffer", func(t *testing.T) {
		data := append([]byte(nil), plaintext...)
		encodeSlice(data, key)
		require.NotEqual(t, plaintext, data)
		decodeSlice(data, key)
		assert.Equal(t, plaintext, data)
	})

	t.Run("chunked", func(t *testing.T) {
		data := append([]byte(nil), plaintext...)
		for start := 0; start < len(data); start += chunkSize {
			end := start + chunkSize
			if end > len(data) {
				end = len(data)
			}
			encodeSlice(data[start:end], key)
		}

		entry := Entry{Name: "setup.iss", Flags: flagChunked, Size: uint32(len(data))}
		text, err := entry.ReadText(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, string(plaintext), text)
	})
}

func TestReadTextInflatesOnlyDecodedPayloads(t *testing.T) {
	t.Parallel()

	plaintext := []byte("[InstallShield Silent]\r\nVersion=v7.00\r\n")
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	t.Run("encoded zlib payload inflates", func(t *testing.T) {
		data := append([]byte(nil), compressed.Bytes()...)
		encodeSlice(data, deriveKey("setup.iss"))

		entry := Entry{Name: "setup.iss", Flags: flagEncoded, Size: uint32(len(data))}
		text, err := entry.ReadText(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, string(plaintext), text)
	})

	t.Run("raw zlib-shaped payload stays verbatim", func(t *testing.T) {
		data := compressed.Bytes()
		entry := Entry{Name: "setup.iss", Flags: 0, Size: uint32(len(data))}
		text, err := entry.ReadText(bytes.NewReader(data))
		require.NoError(t, err)
		assert.NotEqual(t, string(plaintext), text)
		assert.Equal(t, decodeText(data), text)
	})
}

func TestDecodeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain utf8", []byte("hello"), "hello"},
		{"utf8 bom", []byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, "hi"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
		{"bomless utf16le", append([]byte{0xD8, 0x00}, utf16le("[Startup]")...), "\u00D8[Startup]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeText(tt.in))
		})
	}
}

func TestDriverClassification(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DriverSuite, (&Setup{XML: &SetupXML{}}).Driver())
	assert.Equal(t, DriverMsi, (&Setup{Ini: &SetupIni{ScriptDriven: "0"}}).Driver())
	assert.Equal(t, DriverInstallScript, (&Setup{Ini: &SetupIni{ScriptDriven: "1"}}).Driver())
}

func TestDriverSwitches(t *testing.T) {
	t.Parallel()

	msi := driverSwitches(DriverMsi)
	assert.Equal(t, "/S /V/quiet /V/norestart", msi.Silent)
	assert.Equal(t, "/S /V/passive /V/norestart", msi.SilentWithProgress)

	script := driverSwitches(DriverInstallScript)
	assert.Equal(t, "/S", script.Silent)
	assert.Empty(t, script.Repair)

	suite := driverSwitches(DriverSuite)
	assert.Equal(t, "/silent", suite.Silent)
}

func TestSetupXMLMetadata(t *testing.T) {
	t.Parallel()

	content := `<?xml version="1.0" encoding="utf-8"?>
<Setup SuiteId="{11111111-2222-3333-4444-555555555555}">
  <ARPInfo>
    <Version>2.1.0</Version>
    <Publisher>Contoso</Publisher>
    <DisplayName>Contoso Suite</DisplayName>
  </ARPInfo>
  <SetProperty Name="INSTALLDIR" Value="C:\Contoso"/>
  <SetProperty Name="UpgradeCode" Value="{AAAAAAAA-0000-0000-0000-000000000000}"/>
</Setup>`

	cfg := parseSetupXML(content)
	require.NotNil(t, cfg)

	setup := &Setup{XML: cfg}
	records := setup.Records(manifest.ArchX64)
	require.Len(t, records, 1)
	assert.Equal(t, "C:\\Contoso", records[0].InstallLocation)
	assert.Equal(t, "{AAAAAAAA-0000-0000-0000-000000000000}", records[0].UpgradeCode)
	require.Len(t, records[0].AppsAndFeatures, 1)
	assert.Equal(t, "Contoso Suite", records[0].AppsAndFeatures[0].DisplayName)
	assert.Equal(t, "Contoso", records[0].AppsAndFeatures[0].Publisher)
}

func TestLocaleFromDefaultLang(t *testing.T) {
	t.Parallel()

	setup := &Setup{Ini: &SetupIni{Product: "Foo", DefaultLang: "0x0409"}}
	records := setup.Records(manifest.ArchX86)
	assert.Equal(t, "en-US", records[0].Locale)
}

func TestReturnCodesFollowDriver(t *testing.T) {
	t.Parallel()

	msiRecords := (&Setup{Ini: &SetupIni{Product: "A"}}).Records(manifest.ArchX64)
	scriptRecords := (&Setup{Ini: &SetupIni{Product: "A", ScriptDriven: "1"}}).Records(manifest.ArchX64)
	assert.Greater(t, len(msiRecords[0].ExpectedReturnCodes), len(scriptRecords[0].ExpectedReturnCodes))
}
