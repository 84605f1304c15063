package ndbc

const sampleMeteorological = `#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD   APD MWD   PRES  ATMP  WTMP  DEWP  VIS PTDY  TIDE
#yr  mo dy hr mn degT m/s  m/s     m   sec   sec degT   hPa  degC  degC  degC  nmi  hPa    ft
2024 06 01 13 00 210  5.0  6.0   0.5     4   3.2 200     MM  20.1  18.2    MM   MM   MM    MM
2024 06 01 12 00 200  4.0  5.0    MM    MM    MM  MM     MM  19.8  18.1    MM   MM   MM    MM
`

const sampleSolar = `#YY  MM DD hh mm SRAD1  SWRAD  LWRAD
#yr  mo dy hr mn w/m2   w/m2   w/m2
2024 06 01 13 00 410.0    MM     MM
2024 06 01 12 00 380.5    MM     MM
`
